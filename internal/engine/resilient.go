package engine

import (
	"bytes"
	"context"
	"io"

	"github.com/lumadocs/driveline/internal/core/retry"
	"github.com/lumadocs/driveline/internal/domain"
	"github.com/lumadocs/driveline/internal/source"
)

// resilientSource routes every remote call through the retry executor,
// so rate limiting, the circuit breaker, and backoff apply uniformly.
type resilientSource struct {
	src  source.Source
	exec *retry.Executor
}

// NewResilientSource wraps a source with the resilience chain
func NewResilientSource(src source.Source, exec *retry.Executor) source.Source {
	return &resilientSource{src: src, exec: exec}
}

func (r *resilientSource) ListChildren(ctx context.Context, folderID string) ([]domain.RemoteEntry, error) {
	var entries []domain.RemoteEntry
	err := r.exec.Execute(ctx, "list_children", func(ctx context.Context) error {
		var err error
		entries, err = r.src.ListChildren(ctx, folderID)
		return err
	})
	return entries, err
}

// Download buffers the content inside the retry loop; a stream that
// fails mid-read on one attempt must not leak into the next.
func (r *resilientSource) Download(ctx context.Context, fileID string) (io.ReadCloser, error) {
	var content []byte
	err := r.exec.Execute(ctx, "download", func(ctx context.Context) error {
		rc, err := r.src.Download(ctx, fileID)
		if err != nil {
			return err
		}
		defer rc.Close()
		content, err = io.ReadAll(rc)
		return err
	})
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}
