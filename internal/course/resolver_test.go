package course

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestResolver(table Table) *Resolver {
	return NewResolver(table, DefaultOptions(), quietLogger())
}

func TestResolveExactAndCaseInsensitive(t *testing.T) {
	r := newTestResolver(FallbackTable())

	id, ok := r.Resolve("Ascot")
	require.True(t, ok)
	assert.Equal(t, "crs_52", id)

	id, ok = r.Resolve("  MARKET   rasen ")
	require.True(t, ok)
	assert.Equal(t, "crs_910", id)
}

func TestResolveAllWeatherSuffixFallsBackToBaseName(t *testing.T) {
	r := newTestResolver(Table{"kempton": "crs_728", "ascot": "crs_52"})

	base, ok := r.Resolve("Kempton")
	require.True(t, ok)
	aw, ok := r.Resolve("Kempton (AW)")
	require.True(t, ok)
	assert.Equal(t, base, aw)
}

func TestResolveAllWeatherSuffixPrefersAllWeatherKey(t *testing.T) {
	r := newTestResolver(FallbackTable())

	res, ok := r.ResolveDetailed("Kempton (AW)")
	require.True(t, ok)
	assert.Equal(t, "crs_28054", res.CourseID)
	assert.Equal(t, MethodAllWeather, res.Method)

	id, ok := r.Resolve("Newcastle (AW)")
	require.True(t, ok)
	assert.Equal(t, "crs_35178", id)
}

func TestResolveIgnoreAllWeather(t *testing.T) {
	opts := DefaultOptions()
	opts.IgnoreAllWeather = true
	r := NewResolver(FallbackTable(), opts, quietLogger())

	res, ok := r.ResolveDetailed("Kempton (AW)")
	require.True(t, ok)
	assert.Equal(t, "crs_728", res.CourseID)
	assert.Equal(t, MethodStripped, res.Method)
}

func TestResolveAliases(t *testing.T) {
	r := newTestResolver(FallbackTable())

	tests := map[string]string{
		"Donny":          "crs_390",
		"Wolves":         "crs_2470",
		"Haydock Park":   "crs_598",
		"Great Yarmouth": "crs_2704",
	}
	for input, want := range tests {
		t.Run(input, func(t *testing.T) {
			res, ok := r.ResolveDetailed(input)
			require.True(t, ok)
			assert.Equal(t, want, res.CourseID)
			assert.Equal(t, MethodAlias, res.Method)
		})
	}
}

func TestResolveSubstringPrefersShortestName(t *testing.T) {
	r := newTestResolver(Table{
		"newcastle":    "crs_962",
		"newcastle-aw": "crs_35178",
		"newbury":      "crs_936",
	})

	res, ok := r.ResolveDetailed("newcas")
	require.True(t, ok)
	assert.Equal(t, "newcastle", res.Key)
	assert.Equal(t, MethodSubstring, res.Method)

	res, ok = r.ResolveDetailed("Newbury Racecourse")
	require.True(t, ok)
	assert.Equal(t, "crs_936", res.CourseID)
}

func TestResolveSimilarity(t *testing.T) {
	r := newTestResolver(FallbackTable())

	res, ok := r.ResolveDetailed("Wolverhamton")
	require.True(t, ok)
	assert.Equal(t, "crs_2470", res.CourseID)
	assert.Equal(t, MethodSimilarity, res.Method)
	assert.GreaterOrEqual(t, res.Score, 0.8)
}

func TestResolveNotFound(t *testing.T) {
	r := newTestResolver(FallbackTable())

	for _, input := range []string{"", "   ", "Santa Anita", "xq"} {
		_, ok := r.Resolve(input)
		assert.False(t, ok, input)
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	r := newTestResolver(Table{"abcx": "crs_1", "abcy": "crs_2"})

	for i := 0; i < 20; i++ {
		res, ok := r.ResolveDetailed("abc")
		require.True(t, ok)
		assert.Equal(t, "abcx", res.Key)
	}
}

func TestLoadTableMergesFileOverFallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "courses.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"courses":[{"id":"crs_99999","course":"Santa Anita"},{"id":"crs_53","course":"Ascot"}]}`), 0o600))

	table := LoadTable(path, quietLogger())
	assert.Equal(t, "crs_99999", table["santa anita"])
	assert.Equal(t, "crs_53", table["ascot"])
	assert.Equal(t, "crs_728", table["kempton"])
}

func TestLoadTableObjectFormat(t *testing.T) {
	table, err := ParseTable([]byte(`{"Santa Anita": "crs_99999", "bad": 12}`))
	require.NoError(t, err)
	assert.Equal(t, Table{"santa anita": "crs_99999"}, table)
}

func TestLoadTableFallsBack(t *testing.T) {
	dir := t.TempDir()
	malformed := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(malformed, []byte(`{not json`), 0o600))
	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{}`), 0o600))

	for _, path := range []string{"", filepath.Join(dir, "missing.json"), malformed, empty} {
		assert.Equal(t, FallbackTable(), LoadTable(path, quietLogger()), path)
	}
}
