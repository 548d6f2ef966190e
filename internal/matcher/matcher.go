// Package matcher finds the result record for a free-text horse name.
package matcher

import (
	"strings"

	"github.com/yourusername/turf-ledger/internal/models"
	"github.com/yourusername/turf-ledger/internal/textsim"
)

// DefaultMinConfidence is the lowest similarity accepted as a match
const DefaultMinConfidence = 0.8

// Match methods
const (
	MethodExact      = "exact"
	MethodNormalized = "normalized"
	MethodSimilarity = "similarity"
)

// Options configures the matcher
type Options struct {
	MinConfidence float64
}

// Result is a successful match
type Result struct {
	Runner *models.RunnerResult
	Method string
	Score  float64
}

// Matcher matches horse names against a race day's result records
type Matcher struct {
	minConfidence float64
}

// New creates a matcher. A non-positive confidence uses DefaultMinConfidence.
func New(opts Options) *Matcher {
	if opts.MinConfidence <= 0 {
		opts.MinConfidence = DefaultMinConfidence
	}
	return &Matcher{minConfidence: opts.MinConfidence}
}

// Match returns the record for rawHorseName, or false when nothing scores at
// or above the minimum confidence.
func (m *Matcher) Match(rawHorseName string, results []models.RunnerResult) (*models.RunnerResult, bool) {
	res, ok := m.MatchDetailed(rawHorseName, results)
	if !ok {
		return nil, false
	}
	return res.Runner, true
}

// MatchDetailed is Match with the method and score of the winning record.
// Exact matches beat normalized ones, which beat similarity; the earliest
// record wins ties.
func (m *Matcher) MatchDetailed(rawHorseName string, results []models.RunnerResult) (Result, bool) {
	target := strings.ToLower(strings.TrimSpace(rawHorseName))
	if target == "" || len(results) == 0 {
		return Result{}, false
	}

	for i := range results {
		if strings.ToLower(strings.TrimSpace(results[i].Horse)) == target {
			return Result{Runner: &results[i], Method: MethodExact, Score: 1}, true
		}
	}

	key := NormalizeName(rawHorseName)
	if key == "" {
		return Result{}, false
	}
	keys := make([]string, len(results))
	for i := range results {
		keys[i] = NormalizeName(results[i].Horse)
		if keys[i] == key {
			return Result{Runner: &results[i], Method: MethodNormalized, Score: 1}, true
		}
	}

	best := -1
	bestScore := 0.0
	for i, k := range keys {
		if k == "" {
			continue
		}
		if score := textsim.Similarity(key, k); score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 || bestScore < m.minConfidence {
		return Result{}, false
	}
	return Result{Runner: &results[best], Method: MethodSimilarity, Score: bestScore}, true
}

// NormalizeName drops a country suffix such as "(IRE)", punctuation and extra spaces
func NormalizeName(name string) string {
	return textsim.AlphaNumeric(textsim.StripParentheticals(name))
}
