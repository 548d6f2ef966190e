package results

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/turf-ledger/internal/models"
)

func TestKeyString(t *testing.T) {
	key := NewKey("  Kempton (AW) ", "2024-03-01")
	assert.Equal(t, "Kempton (AW)|2024-03-01", key.String())
}

func TestGetOrFetchFetchesOncePerKey(t *testing.T) {
	c := NewCache()
	calls := 0
	fetch := func(ctx context.Context) ([]models.RunnerResult, error) {
		calls++
		return []models.RunnerResult{{Horse: "Frankel", Position: "1"}}, nil
	}
	key := NewKey("Ascot", "2024-06-18")

	for i := 0; i < 3; i++ {
		res, err := c.GetOrFetch(context.Background(), key, fetch)
		require.NoError(t, err)
		require.Len(t, res, 1)
	}

	assert.Equal(t, 1, calls)
	hits, misses, ratio := c.Stats()
	assert.Equal(t, uint64(2), hits)
	assert.Equal(t, uint64(1), misses)
	assert.InDelta(t, 2.0/3.0, ratio, 1e-9)
}

func TestGetOrFetchCachesFailures(t *testing.T) {
	c := NewCache()
	boom := errors.New("upstream down")
	calls := 0
	fetch := func(ctx context.Context) ([]models.RunnerResult, error) {
		calls++
		return nil, boom
	}
	key := NewKey("York", "2024-08-21")

	res, err := c.GetOrFetch(context.Background(), key, fetch)
	assert.ErrorIs(t, err, boom)
	assert.NotNil(t, res)
	assert.Empty(t, res)

	res, err = c.GetOrFetch(context.Background(), key, fetch)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, res)
	assert.Equal(t, 1, calls)
}

func TestDistinctRawKeysFetchSeparately(t *testing.T) {
	c := NewCache()
	calls := 0
	fetch := func(ctx context.Context) ([]models.RunnerResult, error) {
		calls++
		return nil, nil
	}

	_, _ = c.GetOrFetch(context.Background(), NewKey("Kempton", "2024-03-01"), fetch)
	_, _ = c.GetOrFetch(context.Background(), NewKey("Kempton (AW)", "2024-03-01"), fetch)
	_, _ = c.GetOrFetch(context.Background(), NewKey("Kempton", "2024-03-02"), fetch)

	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, c.Len())
}
