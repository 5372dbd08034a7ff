package partner

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeName lowercases, trims and strips diacritics so that
// "Betão" and "betao" compare equal.
func normalizeName(s string) string {
	out, _, err := transform.String(deaccent, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// Slugify converts an entity name to the roster's slug convention,
// lowercase with spaces collapsed to hyphens.
func Slugify(name string) string {
	return strings.Join(strings.Fields(normalizeName(name)), "-")
}

// Similarity scores how alike two names are on [0,1]. Equal strings score
// 1, containment scores 0.9, anything else is Levenshtein distance
// normalized by the longer length.
func Similarity(a, b string) float64 {
	s1 := normalizeName(a)
	s2 := normalizeName(b)

	if s1 == s2 {
		return 1
	}
	if len(s1) == 0 || len(s2) == 0 {
		return 0
	}
	if strings.Contains(s1, s2) || strings.Contains(s2, s1) {
		return 0.9
	}

	distance := levenshtein(s1, s2)
	maxLen := len(s1)
	if len(s2) > maxLen {
		maxLen = len(s2)
	}
	return 1 - float64(distance)/float64(maxLen)
}

// levenshtein computes edit distance over bytes with a rolling two-row
// matrix.
func levenshtein(s1, s2 string) int {
	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)

	for j := 0; j <= len(s2); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(s2)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
