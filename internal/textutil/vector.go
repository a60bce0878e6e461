package textutil

import "math"

// Vector is a sparse term-weight vector over a name's content tokens.
type Vector map[string]float64

// TermWeights holds inverse document frequencies learned from a set of names,
// typically every display name in the catalog.
type TermWeights struct {
	idf    map[string]float64
	unseen float64
}

// NewTermWeights counts in how many names each content token appears and
// derives idf = log((N+1)/(1+df)). Tokens never seen get log(N+1).
func NewTermWeights(names []string) *TermWeights {
	df := make(map[string]int)
	docs := 0
	for _, name := range names {
		tokens := ContentTokens(name)
		if len(tokens) == 0 {
			continue
		}
		docs++
		seen := make(map[string]struct{}, len(tokens))
		for _, token := range tokens {
			if _, dup := seen[token]; dup {
				continue
			}
			seen[token] = struct{}{}
			df[token]++
		}
	}
	n := float64(docs)
	idf := make(map[string]float64, len(df))
	for token, count := range df {
		idf[token] = math.Log((n + 1) / (1 + float64(count)))
	}
	return &TermWeights{idf: idf, unseen: math.Log(n + 1)}
}

// Vector returns the tf-idf vector of name. When every token carries zero
// weight (it appears in every name) the raw term counts are returned instead.
// A nil receiver yields plain term counts.
func (w *TermWeights) Vector(name string) Vector {
	tf := make(Vector)
	for _, token := range ContentTokens(name) {
		tf[token]++
	}
	if w == nil || len(tf) == 0 {
		return tf
	}
	weighted := make(Vector, len(tf))
	for token, count := range tf {
		weight, ok := w.idf[token]
		if !ok {
			weight = w.unseen
		}
		if v := count * weight; v != 0 {
			weighted[token] = v
		}
	}
	if len(weighted) == 0 {
		return tf
	}
	return weighted
}

// Cosine returns the cosine similarity of a and b, 0 when either is empty.
func Cosine(a, b Vector) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var dot, na, nb float64
	for token, x := range a {
		na += x * x
		if y, ok := b[token]; ok {
			dot += x * y
		}
	}
	for _, y := range b {
		nb += y * y
	}
	if dot == 0 || na == 0 || nb == 0 {
		return 0
	}
	return min(dot/(math.Sqrt(na)*math.Sqrt(nb)), 1)
}
