package textutil

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// EditRatio returns 1 - lev(a,b)/max(len(a),len(b)) over rune counts.
// Both strings are compared as given; callers fold first. Two empty strings
// score 0 so missing names never look identical.
func EditRatio(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := max(la, lb)
	if longest == 0 {
		return 0
	}
	if a == b {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	ratio := 1 - float64(dist)/float64(longest)
	if ratio < 0 {
		return 0
	}
	return ratio
}

// Jaccard returns |A∩B| / |A∪B| over the distinct members of a and b.
func Jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA := make(map[string]struct{}, len(a))
	for _, token := range a {
		setA[token] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, token := range b {
		setB[token] = struct{}{}
	}
	inter := 0
	for token := range setA {
		if _, ok := setB[token]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
