package arbitration

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"google.golang.org/genai"
)

// Embedder turns texts into vectors, one per text, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbeddingOracle scores candidates by cosine similarity of their embeddings
// to the query embedding. Negative similarities score 0.
type EmbeddingOracle struct {
	embedder Embedder
}

// NewEmbeddingOracle wraps embedder.
func NewEmbeddingOracle(embedder Embedder) *EmbeddingOracle {
	return &EmbeddingOracle{embedder: embedder}
}

// Score embeds the query and candidates in one batch.
func (o *EmbeddingOracle) Score(ctx context.Context, query string, candidates []string) ([]float64, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	texts := append([]string{query}, candidates...)
	vectors, err := o.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(texts))
	}
	scores := make([]float64, len(candidates))
	for i := range candidates {
		scores[i] = max(cosine(vectors[0], vectors[i+1]), 0)
	}
	return scores, nil
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return min(dot/(math.Sqrt(na)*math.Sqrt(nb)), 1)
}

// GenAIEmbedder embeds text with the Gemini API.
type GenAIEmbedder struct {
	client *genai.Client
	model  string
}

// NewGenAIEmbedder creates a Gemini embedding client. model defaults to
// gemini-embedding-001.
func NewGenAIEmbedder(ctx context.Context, apiKey, model string) (*GenAIEmbedder, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("genai api key required")
	}
	if model = strings.TrimSpace(model); model == "" {
		model = "gemini-embedding-001"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GenAIEmbedder{client: client, model: model}, nil
}

// Embed sends texts as one batch request.
func (e *GenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}
	result, err := e.client.Models.EmbedContent(ctx, e.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("genai embed: %w", err)
	}
	vectors := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		vectors[i] = emb.Values
	}
	return vectors, nil
}

// Name reports the provider and model.
func (e *GenAIEmbedder) Name() string {
	return "genai:" + e.model
}
