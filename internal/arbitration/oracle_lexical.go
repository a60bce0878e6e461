package arbitration

import (
	"context"

	"github.com/thebossrrpg/Thesims4modanalyzer/internal/catalog"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/textutil"
)

// LexicalOracle scores candidates offline: half TF-IDF cosine over the
// catalog's title vocabulary, half edit ratio of the noise-stripped names.
type LexicalOracle struct {
	weights *textutil.TermWeights
}

// NewLexicalOracle learns term weights from every display name in entries.
func NewLexicalOracle(entries []catalog.Entry) *LexicalOracle {
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.DisplayName())
	}
	return &LexicalOracle{weights: textutil.NewTermWeights(names)}
}

// Score never fails apart from context cancellation.
func (o *LexicalOracle) Score(ctx context.Context, query string, candidates []string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q := textutil.StripNoise(query)
	qv := o.weights.Vector(q)
	scores := make([]float64, len(candidates))
	for i, c := range candidates {
		c = textutil.StripNoise(c)
		cosine := textutil.Cosine(qv, o.weights.Vector(c))
		scores[i] = min(max(0.5*cosine+0.5*textutil.EditRatio(q, c), 0), 1)
	}
	return scores, nil
}
