package vector

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PostgresIndex implements Index on Postgres with the pgvector extension
type PostgresIndex struct {
	pool      *pgxpool.Pool
	dimension int
}

// NewPostgresIndex connects to Postgres and prepares the chunk table
func NewPostgresIndex(ctx context.Context, dsn string, dimension int) (*PostgresIndex, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	idx := &PostgresIndex{pool: pool, dimension: dimension}
	if err := idx.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return idx, nil
}

func (p *PostgresIndex) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS document_chunks (
			id          TEXT PRIMARY KEY,
			path        TEXT NOT NULL,
			chunk_index INT NOT NULL,
			content     TEXT NOT NULL,
			embedding   vector(%d)
		)`, p.dimension),
		`CREATE INDEX IF NOT EXISTS document_chunks_path_idx ON document_chunks (path)`,
	}

	for _, stmt := range statements {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Upsert inserts or replaces chunks by ID in a single batch
func (p *PostgresIndex) Upsert(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, c := range chunks {
		var embedding any
		if c.Embedding != nil {
			embedding = pgvector.NewVector(c.Embedding)
		}
		batch.Queue(`
			INSERT INTO document_chunks (id, path, chunk_index, content, embedding)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET
				path = EXCLUDED.path,
				chunk_index = EXCLUDED.chunk_index,
				content = EXCLUDED.content,
				embedding = EXCLUDED.embedding`,
			c.ID, c.Path, c.Index, c.Content, embedding)
	}

	results := p.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range chunks {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to upsert chunk: %w", err)
		}
	}
	return nil
}

// RemoveByPath deletes every chunk belonging to a document
func (p *PostgresIndex) RemoveByPath(ctx context.Context, path string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM document_chunks WHERE path = $1`, path)
	if err != nil {
		return fmt.Errorf("failed to remove chunks for %s: %w", path, err)
	}
	return nil
}

// RemoveByIDs deletes specific chunks
func (p *PostgresIndex) RemoveByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := p.pool.Exec(ctx, `DELETE FROM document_chunks WHERE id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("failed to remove chunks: %w", err)
	}
	return nil
}

// Search returns the chunks closest to the query embedding by cosine
// distance.
func (p *PostgresIndex) Search(ctx context.Context, embedding []float32, limit int) ([]Chunk, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := p.pool.Query(ctx, `
		SELECT id, path, chunk_index, content
		FROM document_chunks
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1
		LIMIT $2`,
		pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("search query failed: %w", err)
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.Path, &c.Index, &c.Content); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// Close releases the connection pool
func (p *PostgresIndex) Close() {
	p.pool.Close()
}

// Compile-time interface check
var _ Index = (*PostgresIndex)(nil)
