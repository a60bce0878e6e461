package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// SimilarityPrompt instructs the model to rate catalog titles against a query.
const SimilarityPrompt = `You compare Sims 4 mod names. The user message is a JSON object with a
"query" (the name found on a mod page) and "candidates" (catalog titles, possibly
with creator names). For each candidate, rate from 0 to 1 how likely it names
the same mod as the query. Ignore version numbers and words like "updated" or
"fixed". Different mods by the same creator are not the same mod.
Respond with JSON only: {"scores":[<one number per candidate, in order>]}`

type similarityRequest struct {
	Query      string   `json:"query"`
	Candidates []string `json:"candidates"`
}

// RateSimilarity scores each candidate against query. The result has exactly
// one value per candidate, clamped to [0,1].
func (c *Client) RateSimilarity(ctx context.Context, query string, candidates []string) ([]float64, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("llm similarity: query required")
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	user, err := json.Marshal(similarityRequest{Query: query, Candidates: candidates})
	if err != nil {
		return nil, fmt.Errorf("llm similarity: encode prompt: %w", err)
	}
	content, err := c.CompleteJSON(ctx, SimilarityPrompt, string(user))
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Scores []float64 `json:"scores"`
	}
	if err := DecodeLLMJSON(content, &parsed); err != nil {
		return nil, fmt.Errorf("llm similarity: parse payload: %w", err)
	}
	if len(parsed.Scores) != len(candidates) {
		return nil, fmt.Errorf("llm similarity: got %d scores for %d candidates", len(parsed.Scores), len(candidates))
	}
	for i, s := range parsed.Scores {
		parsed.Scores[i] = min(max(s, 0), 1)
	}
	return parsed.Scores, nil
}
