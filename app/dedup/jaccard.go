package dedup

import (
	"strings"
	"unicode"
)

// jaccardSimilarity scores two titles as |intersection| / |union| over their
// token sets. Identical sets score 1.0, disjoint sets 0.0.
func jaccardSimilarity(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)

	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}

	intersection := 0
	for token := range setA {
		if setB[token] {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}

	return float64(intersection) / float64(union)
}

// tokenSet case-folds the string, splits it on whitespace, and trims
// punctuation from both ends of every token, so "Today!!" and "today"
// compare equal.
func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, word := range strings.Fields(foldCaser.String(s)) {
		token := strings.TrimFunc(word, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if token != "" {
			set[token] = true
		}
	}
	return set
}
