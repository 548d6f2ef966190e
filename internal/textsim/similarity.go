// Package textsim provides the string normalization and edit-distance scoring
// shared by course resolution and horse matching.
package textsim

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Similarity returns 1 - distance/maxLen for two strings, in [0, 1].
// Two empty strings are identical.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(maxLen)
}

// CollapseSpaces lowercases s, trims it and collapses inner whitespace runs
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// StripParentheticals removes every "(...)" group and collapses the remaining spaces
func StripParentheticals(s string) string {
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch {
		case r == '(':
			depth++
		case r == ')' && depth > 0:
			depth--
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return CollapseSpaces(b.String())
}

// AlphaNumeric lowercases s and keeps only letters, digits and single spaces.
// Apostrophes are dropped so "O'Reilly" and "OReilly" compare equal; other
// punctuation becomes a word break.
func AlphaNumeric(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '\'', r == '’', r == '`':
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
