// Package blob provides the content store the engine writes synced
// documents, chunks, and sync metadata into.
package blob

import (
	"context"
	"io"
)

// Store is a flat key-value content store. Keys are slash-separated
// logical paths.
type Store interface {
	// Put creates or overwrites the object at key
	Put(ctx context.Context, key string, r io.Reader) error

	// Get opens the object at key for reading
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the object at key; deleting a missing key is not
	// an error
	Delete(ctx context.Context, key string) error

	// List returns all keys with the given prefix, sorted
	List(ctx context.Context, prefix string) ([]string, error)

	// Exists reports whether an object is stored at key
	Exists(ctx context.Context, key string) (bool, error)
}
