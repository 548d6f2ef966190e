// Package results provides the per-pass cache of fetched race results.
package results

import (
	"context"
	"fmt"
	"strings"
	"sync"

	cache "github.com/patrickmn/go-cache"
	"github.com/yourusername/turf-ledger/internal/models"
)

// Key identifies the results requested for one raw track leg on one race day.
// Raw spellings that resolve to the same course are still separate keys.
type Key struct {
	Track string
	Date  string // YYYY-MM-DD
}

// NewKey builds a key from a raw track leg and a race day
func NewKey(track, date string) Key {
	return Key{Track: strings.TrimSpace(track), Date: date}
}

// String returns string representation of the cache key
func (k Key) String() string {
	return fmt.Sprintf("%s|%s", k.Track, k.Date)
}

// FetchFunc loads the results for a key
type FetchFunc func(ctx context.Context) ([]models.RunnerResult, error)

// Entry keeps a failed fetch as an empty list together with its error
type Entry struct {
	Results []models.RunnerResult
	Err     error
}

// Cache holds the results fetched during one settlement pass. Entries never
// expire; the cache is dropped with the pass that created it.
type Cache struct {
	cache     *cache.Cache
	mu        sync.Mutex
	hitCount  uint64
	missCount uint64
}

// NewCache creates an empty pass cache
func NewCache() *Cache {
	return &Cache{cache: cache.New(cache.NoExpiration, 0)}
}

// GetOrFetch returns the cached results for key, calling fetch at most once per
// key for the life of the cache. A failed fetch is cached and its error is
// returned to every later caller.
func (c *Cache) GetOrFetch(ctx context.Context, key Key, fetch FetchFunc) ([]models.RunnerResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, found := c.cache.Get(key.String()); found {
		c.hitCount++
		e := v.(*Entry)
		return e.Results, e.Err
	}
	c.missCount++

	results, err := fetch(ctx)
	if err != nil {
		results = []models.RunnerResult{}
	}
	c.cache.Set(key.String(), &Entry{Results: results, Err: err}, cache.NoExpiration)
	return results, err
}

// Stats returns cache statistics
func (c *Cache) Stats() (hits, misses uint64, ratio float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	hits = c.hitCount
	misses = c.missCount
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return
}

// Len returns the number of cached keys
func (c *Cache) Len() int {
	return c.cache.ItemCount()
}
