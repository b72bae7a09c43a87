// Package traverse walks a remote folder hierarchy with hard bounds on
// depth and file count.
package traverse

import (
	"context"
	"path"

	"github.com/lumadocs/driveline/internal/domain"
	"github.com/lumadocs/driveline/internal/logger"
	"github.com/lumadocs/driveline/internal/source"
)

const (
	// DefaultMaxDepth bounds folder nesting below the root
	DefaultMaxDepth = 10

	// DefaultMaxFiles bounds total discovered files per walk
	DefaultMaxFiles = 1000
)

// FolderError records a subfolder whose listing failed. The walk
// continues with the folder's siblings.
type FolderError struct {
	Path string
	Err  error
}

// Result is the outcome of one walk
type Result struct {
	// Files are the discovered files in discovery order, Path populated
	Files []domain.RemoteEntry

	// Truncated is set when the file limit stopped discovery early
	Truncated bool

	// DepthSkipped lists folder paths not descended into because they
	// sat at the depth limit
	DepthSkipped []string

	// Errors holds per-folder listing failures
	Errors []FolderError
}

// Walker performs bounded recursive traversal over a Source
type Walker struct {
	src      source.Source
	maxDepth int
	maxFiles int
	log      logger.Logger
}

// NewWalker creates a walker. Non-positive bounds fall back to defaults.
func NewWalker(src source.Source, maxDepth, maxFiles int, log logger.Logger) *Walker {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFiles
	}
	if log == nil {
		log = logger.Get()
	}
	return &Walker{
		src:      src,
		maxDepth: maxDepth,
		maxFiles: maxFiles,
		log:      log,
	}
}

// Walk lists every file reachable from rootID. File paths are relative
// to the root, using forward slashes. A listing failure in one subfolder
// is recorded and does not abort the walk; context cancellation does.
func (w *Walker) Walk(ctx context.Context, rootID string) (*Result, error) {
	res := &Result{}
	if err := w.walk(ctx, rootID, "", 0, res); err != nil {
		return res, err
	}
	return res, nil
}

func (w *Walker) walk(ctx context.Context, folderID, folderPath string, depth int, res *Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if res.Truncated {
		return nil
	}

	entries, err := w.src.ListChildren(ctx, folderID)
	if err != nil {
		w.log.Warn("folder listing failed, skipping subtree",
			"folder", folderPath,
			"error", err)
		res.Errors = append(res.Errors, FolderError{Path: folderPath, Err: err})
		return nil
	}

	var folders []domain.RemoteEntry
	for _, entry := range entries {
		entry.Path = path.Join(folderPath, entry.Name)

		if entry.IsFolder() {
			folders = append(folders, entry)
			continue
		}

		res.Files = append(res.Files, entry)
		if len(res.Files) >= w.maxFiles {
			w.log.Warn("file limit reached, truncating discovery",
				"limit", w.maxFiles)
			res.Truncated = true
			return nil
		}
	}

	for _, folder := range folders {
		if depth+1 > w.maxDepth {
			w.log.Warn("depth limit reached, skipping folder",
				"folder", folder.Path,
				"limit", w.maxDepth)
			res.DepthSkipped = append(res.DepthSkipped, folder.Path)
			continue
		}
		if err := w.walk(ctx, folder.ID, folder.Path, depth+1, res); err != nil {
			return err
		}
		if res.Truncated {
			return nil
		}
	}

	return nil
}
