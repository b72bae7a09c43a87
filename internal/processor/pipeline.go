package processor

import (
	"context"
	"fmt"
	"strings"

	"github.com/lumadocs/driveline/internal/blob"
	"github.com/lumadocs/driveline/internal/embed"
	"github.com/lumadocs/driveline/internal/logger"
	"github.com/lumadocs/driveline/internal/vector"
)

// ChunkPrefix is the blob key prefix holding extracted chunks
const ChunkPrefix = "chunks/"

// Pipeline implements Processor: extract text, chunk it, persist chunks
// to the blob store, then embed and index them. Embedder and index are
// optional; without them documents are chunked and stored only.
type Pipeline struct {
	store    blob.Store
	index    vector.Index
	embedder embed.Embedder
	chunker  *Chunker
	log      logger.Logger
}

// NewPipeline creates a processing pipeline. index and embedder may be
// nil to disable vector indexing.
func NewPipeline(store blob.Store, index vector.Index, embedder embed.Embedder, chunker *Chunker, log logger.Logger) *Pipeline {
	if chunker == nil {
		chunker = NewChunker(DefaultChunkSize, DefaultChunkOverlap)
	}
	if log == nil {
		log = logger.Get()
	}
	return &Pipeline{
		store:    store,
		index:    index,
		embedder: embedder,
		chunker:  chunker,
		log:      log,
	}
}

// isTextMime reports whether the content can be chunked as plain text
func isTextMime(mimeType string) bool {
	return strings.HasPrefix(mimeType, "text/")
}

// chunkKey is the blob key for one chunk of a document
func chunkKey(path string, index int) string {
	return fmt.Sprintf("%s%s/%d.txt", ChunkPrefix, path, index)
}

// chunkID is the stable vector index ID for one chunk of a document
func chunkID(path string, index int) string {
	return fmt.Sprintf("%s#%d", path, index)
}

// Process ingests one document. Re-processing an updated document first
// evicts the previous chunks so a shrinking document leaves no orphans.
func (p *Pipeline) Process(ctx context.Context, path, mimeType string, content []byte) (Result, error) {
	if err := p.Remove(ctx, path); err != nil {
		return Result{}, fmt.Errorf("failed to evict previous chunks: %w", err)
	}

	if !isTextMime(mimeType) {
		p.log.Debug("content type not chunkable, stored without indexing",
			"path", path,
			"mime_type", mimeType)
		return Result{}, nil
	}

	chunks := p.chunker.Split(string(content))
	for i, chunk := range chunks {
		if err := p.store.Put(ctx, chunkKey(path, i), strings.NewReader(chunk)); err != nil {
			return Result{}, fmt.Errorf("failed to store chunk %d: %w", i, err)
		}
	}

	result := Result{ChunksCreated: len(chunks)}
	if p.index == nil || p.embedder == nil || len(chunks) == 0 {
		return result, nil
	}

	embeddings, err := p.embedder.Embed(ctx, chunks)
	if err != nil {
		return result, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return result, fmt.Errorf("expected %d embeddings, got %d", len(chunks), len(embeddings))
	}

	docs := make([]vector.Chunk, len(chunks))
	for i, chunk := range chunks {
		docs[i] = vector.Chunk{
			ID:        chunkID(path, i),
			Path:      path,
			Index:     i,
			Content:   chunk,
			Embedding: embeddings[i],
		}
	}
	if err := p.index.Upsert(ctx, docs); err != nil {
		return result, fmt.Errorf("failed to index chunks: %w", err)
	}

	result.Indexed = true
	return result, nil
}

// Remove evicts stored chunks and index entries for a document
func (p *Pipeline) Remove(ctx context.Context, path string) error {
	prefix := ChunkPrefix + path + "/"
	keys, err := p.store.List(ctx, prefix)
	if err != nil {
		return fmt.Errorf("failed to list chunks: %w", err)
	}
	for _, key := range keys {
		if err := p.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("failed to delete chunk %s: %w", key, err)
		}
	}

	if p.index != nil {
		if err := p.index.RemoveByPath(ctx, path); err != nil {
			return err
		}
	}
	return nil
}

// Compile-time interface check
var _ Processor = (*Pipeline)(nil)
