// Package source defines the remote file source consumed by the sync
// engine. Implementations live in subpackages.
package source

import (
	"context"
	"io"

	"github.com/lumadocs/driveline/internal/domain"
)

// Source lists and downloads files from a remote hierarchical store
type Source interface {
	// ListChildren returns the immediate children of a folder.
	// Entries carry no Path; traversal assigns paths.
	ListChildren(ctx context.Context, folderID string) ([]domain.RemoteEntry, error)

	// Download streams the content of a file
	Download(ctx context.Context, fileID string) (io.ReadCloser, error)
}
