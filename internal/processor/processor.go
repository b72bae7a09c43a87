// Package processor turns downloaded documents into stored chunks and
// vector index entries.
package processor

import (
	"context"
)

// Result reports what processing produced for one document
type Result struct {
	ChunksCreated int
	Indexed       bool
}

// Processor ingests and evicts document content
type Processor interface {
	// Process ingests one document: chunk, store, embed, index
	Process(ctx context.Context, path, mimeType string, content []byte) (Result, error)

	// Remove evicts everything previously produced for a document
	Remove(ctx context.Context, path string) error
}
