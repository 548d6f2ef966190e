// Package course resolves free-text track names to canonical course identifiers.
package course

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/turf-ledger/internal/textsim"
)

// Table maps lowercase canonical course names to course identifiers
type Table map[string]string

// Match methods reported in a Resolution
const (
	MethodExact      = "exact"
	MethodAlias      = "alias"
	MethodAllWeather = "all_weather"
	MethodStripped   = "stripped"
	MethodSubstring  = "substring"
	MethodSimilarity = "similarity"
)

const (
	allWeatherSuffix    = "(aw)"
	allWeatherKeySuffix = "-aw"
	minContainmentRunes = 3
)

// Options configures fuzzy resolution
type Options struct {
	MinSimilarity float64
	Aliases       map[string]string

	// IgnoreAllWeather resolves "<name> (AW)" to the base course even when a
	// separate "<name>-aw" course exists.
	IgnoreAllWeather bool
}

// DefaultOptions returns the resolver defaults
func DefaultOptions() Options {
	return Options{MinSimilarity: 0.8, Aliases: defaultAliases}
}

// Resolution describes how a track name was resolved
type Resolution struct {
	Input    string  `json:"input"`
	Key      string  `json:"key"`
	CourseID string  `json:"course_id"`
	Method   string  `json:"method"`
	Score    float64 `json:"score"`
}

// Resolver maps raw track names onto a course table
type Resolver struct {
	table   Table
	aliases map[string]string
	keys    []string
	opts    Options
	logger  *logrus.Entry
}

// NewResolver creates a resolver over table. The table is not modified.
func NewResolver(table Table, opts Options, logger *logrus.Logger) *Resolver {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if opts.MinSimilarity <= 0 {
		opts.MinSimilarity = DefaultOptions().MinSimilarity
	}
	if opts.Aliases == nil {
		opts.Aliases = defaultAliases
	}

	normalized := make(Table, len(table))
	for name, id := range table {
		normalized[textsim.CollapseSpaces(name)] = id
	}
	aliases := make(map[string]string, len(opts.Aliases))
	for alias, key := range opts.Aliases {
		aliases[textsim.CollapseSpaces(alias)] = textsim.CollapseSpaces(key)
	}

	keys := make([]string, 0, len(normalized))
	for k := range normalized {
		keys = append(keys, k)
	}
	sortCandidates(keys)

	return &Resolver{
		table:   normalized,
		aliases: aliases,
		keys:    keys,
		opts:    opts,
		logger:  logger.WithField("component", "course_resolver"),
	}
}

// Size returns the number of courses known to the resolver
func (r *Resolver) Size() int {
	return len(r.table)
}

// Resolve returns the course identifier for rawTrackName, or false when no course matches
func (r *Resolver) Resolve(rawTrackName string) (string, bool) {
	res, ok := r.ResolveDetailed(rawTrackName)
	if !ok {
		return "", false
	}
	return res.CourseID, true
}

// ResolveDetailed resolves rawTrackName and reports the matching key and method
func (r *Resolver) ResolveDetailed(rawTrackName string) (Resolution, bool) {
	name := textsim.CollapseSpaces(rawTrackName)
	res := Resolution{Input: rawTrackName}
	if name == "" {
		return res, false
	}

	if key, method, ok := r.lookupExact(name); ok {
		return r.found(res, key, method, 1), true
	}

	if key, method, score, ok := r.lookupFuzzy(name); ok {
		r.logger.WithFields(logrus.Fields{
			"track":  rawTrackName,
			"key":    key,
			"method": method,
			"score":  score,
		}).Debug("Resolved track by fuzzy match")
		return r.found(res, key, method, score), true
	}

	r.logger.WithField("track", rawTrackName).Warn("No course found for track")
	return res, false
}

func (r *Resolver) found(res Resolution, key, method string, score float64) Resolution {
	res.Key = key
	res.CourseID = r.table[key]
	res.Method = method
	res.Score = score
	return res
}

// lookupExact tries the normalized name, aliases, then the name without its
// parenthetical suffix. An "(AW)" suffix prefers the all-weather course key
// unless IgnoreAllWeather is set.
func (r *Resolver) lookupExact(name string) (string, string, bool) {
	if _, ok := r.table[name]; ok {
		return name, MethodExact, true
	}
	if key, ok := r.aliases[name]; ok {
		if _, ok := r.table[key]; ok {
			return key, MethodAlias, true
		}
	}

	stripped := textsim.StripParentheticals(name)
	if stripped == name || stripped == "" {
		return "", "", false
	}

	if !r.opts.IgnoreAllWeather && strings.HasSuffix(name, allWeatherSuffix) {
		if key := stripped + allWeatherKeySuffix; r.has(key) {
			return key, MethodAllWeather, true
		}
	}
	if r.has(stripped) {
		return stripped, MethodStripped, true
	}
	if key, ok := r.aliases[stripped]; ok && r.has(key) {
		return key, MethodAlias, true
	}
	return "", "", false
}

func (r *Resolver) has(key string) bool {
	_, ok := r.table[key]
	return ok
}

// lookupFuzzy prefers containment either way over edit distance. Ties go to the
// shortest canonical name, then lexical order.
func (r *Resolver) lookupFuzzy(name string) (string, string, float64, bool) {
	base := textsim.StripParentheticals(name)
	if base == "" {
		base = name
	}

	if utf8.RuneCountInString(base) >= minContainmentRunes {
		var contained []string
		for _, key := range r.keys {
			if strings.Contains(base, key) || strings.Contains(key, base) {
				contained = append(contained, key)
			}
		}
		if len(contained) > 0 {
			return contained[0], MethodSubstring, textsim.Similarity(base, contained[0]), true
		}
	}

	bestKey := ""
	bestScore := 0.0
	for _, key := range r.keys {
		score := textsim.Similarity(base, key)
		if score > bestScore {
			bestKey, bestScore = key, score
		}
	}
	if bestKey != "" && bestScore >= r.opts.MinSimilarity {
		return bestKey, MethodSimilarity, bestScore, true
	}
	return "", "", 0, false
}

// sortCandidates orders keys shortest first, then lexically
func sortCandidates(keys []string) {
	sort.Slice(keys, func(i, j int) bool {
		li, lj := utf8.RuneCountInString(keys[i]), utf8.RuneCountInString(keys[j])
		if li != lj {
			return li < lj
		}
		return keys[i] < keys[j]
	})
}
