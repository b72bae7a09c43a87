// Package embed generates vector embeddings for document chunks.
package embed

import (
	"context"
)

// Embedder turns text into a vector representation
type Embedder interface {
	// Embed returns one embedding per input text, in order
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
