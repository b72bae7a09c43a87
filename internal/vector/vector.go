// Package vector maintains the searchable index of document chunks.
package vector

import (
	"context"
)

// Chunk is one indexed piece of a document
type Chunk struct {
	// ID uniquely identifies the chunk, stable across passes
	ID string

	// Path is the logical path of the source document
	Path string

	// Index is the chunk's position within the document
	Index int

	// Content is the chunk text
	Content string

	// Embedding is the chunk's vector representation
	Embedding []float32
}

// Index stores and removes document chunks
type Index interface {
	// Upsert inserts or replaces chunks by ID
	Upsert(ctx context.Context, chunks []Chunk) error

	// RemoveByPath deletes every chunk belonging to a document
	RemoveByPath(ctx context.Context, path string) error

	// RemoveByIDs deletes specific chunks
	RemoveByIDs(ctx context.Context, ids []string) error

	// Search returns the closest chunks to the query embedding
	Search(ctx context.Context, embedding []float32, limit int) ([]Chunk, error)

	Close()
}
