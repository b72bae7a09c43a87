package embed

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// DefaultModel is the Gemini embedding model used when none is configured
const DefaultModel = "gemini-embedding-001"

// GeminiEmbedder implements Embedder on the Gemini API
type GeminiEmbedder struct {
	client    *genai.Client
	model     string
	dimension int32
}

// NewGemini creates a Gemini-backed embedder
func NewGemini(ctx context.Context, apiKey, model string, dimension int) (*GeminiEmbedder, error) {
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiEmbedder{
		client:    client,
		model:     model,
		dimension: int32(dimension),
	}, nil
}

// Embed returns one embedding per input text
func (g *GeminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, 0, len(texts))
	for _, t := range texts {
		contents = append(contents, genai.NewContentFromText(t, genai.RoleUser))
	}

	var config *genai.EmbedContentConfig
	if g.dimension > 0 {
		dim := g.dimension
		config = &genai.EmbedContentConfig{OutputDimensionality: &dim}
	}

	resp, err := g.client.Models.EmbedContent(ctx, g.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Embeddings))
	}

	result := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		result[i] = e.Values
	}
	return result, nil
}

// Compile-time interface check
var _ Embedder = (*GeminiEmbedder)(nil)
