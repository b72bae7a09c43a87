// Package diff classifies remote entries against the last synced state.
//
// Classification is content-based: a file counts as updated only when its
// downloaded content hash differs from the recorded one. Remote metadata
// (modified time, size) is not trusted as a change signal.
package diff

import (
	"sort"

	"github.com/lumadocs/driveline/internal/domain"
)

// ChangeKind classifies a single remote file against local state
type ChangeKind int

const (
	ChangeUnchanged ChangeKind = iota
	ChangeAdded
	ChangeUpdated
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeAdded:
		return "added"
	case ChangeUpdated:
		return "updated"
	default:
		return "unchanged"
	}
}

// Changes is the full result of diffing a remote listing against local state
type Changes struct {
	Added     []domain.RemoteEntry
	Updated   []domain.RemoteEntry
	Unchanged []domain.RemoteEntry

	// Removed holds local paths no longer present remotely
	Removed []string

	// Failed holds paths whose content hash could not be computed
	Failed map[string]error
}

// Detector classifies remote entries. The zero value is usable.
type Detector struct{}

// NewDetector creates a change detector
func NewDetector() *Detector {
	return &Detector{}
}

// Classify determines what happened to a single file. rec is the record
// from the previous pass (nil when the path was never synced) and
// contentHash is the hash of the freshly downloaded content.
func (d *Detector) Classify(rec *domain.LocalFileRecord, contentHash string) ChangeKind {
	if rec == nil {
		return ChangeAdded
	}
	if rec.ContentHash != contentHash {
		return ChangeUpdated
	}
	return ChangeUnchanged
}

// Removed returns the local paths absent from the remote listing, sorted
// for deterministic processing order.
func (d *Detector) Removed(remote []domain.RemoteEntry, local map[string]domain.LocalFileRecord) []string {
	seen := make(map[string]struct{}, len(remote))
	for _, entry := range remote {
		seen[entry.Path] = struct{}{}
	}

	var removed []string
	for path := range local {
		if _, ok := seen[path]; !ok {
			removed = append(removed, path)
		}
	}
	sort.Strings(removed)
	return removed
}

// Diff classifies every remote entry using hashOf to obtain content
// hashes on demand. A hashOf failure isolates that one file into Failed
// without affecting the rest.
func (d *Detector) Diff(remote []domain.RemoteEntry, local map[string]domain.LocalFileRecord, hashOf func(domain.RemoteEntry) (string, error)) Changes {
	changes := Changes{
		Failed: make(map[string]error),
	}

	for _, entry := range remote {
		hash, err := hashOf(entry)
		if err != nil {
			changes.Failed[entry.Path] = err
			continue
		}

		var rec *domain.LocalFileRecord
		if r, ok := local[entry.Path]; ok {
			rec = &r
		}

		switch d.Classify(rec, hash) {
		case ChangeAdded:
			changes.Added = append(changes.Added, entry)
		case ChangeUpdated:
			changes.Updated = append(changes.Updated, entry)
		default:
			changes.Unchanged = append(changes.Unchanged, entry)
		}
	}

	changes.Removed = d.Removed(remote, local)
	return changes
}
