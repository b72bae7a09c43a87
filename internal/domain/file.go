package domain

import "time"

// EntryKind represents the kind of a remote entry
type EntryKind int

const (
	KindFile EntryKind = iota
	KindFolder
)

// RemoteEntry represents a file or folder discovered in the remote store.
// Entries are immutable once produced by a traversal pass.
type RemoteEntry struct {
	// ID is the remote store's identifier for this entry
	ID string

	// Name is the entry's display name
	Name string

	// Kind indicates whether this is a file or a folder
	Kind EntryKind

	// MimeType as reported by the remote store
	MimeType string

	// ModifiedTime is the remote modification time
	ModifiedTime time.Time

	// Size in bytes (0 for folders)
	Size int64

	// Path is the slash-joined ancestry from the traversal root
	Path string

	// RemoteChecksum is the checksum the remote store reports, when it
	// reports one. Informational only: change detection trusts the hash
	// computed after download, not this value.
	RemoteChecksum string
}

// IsFolder returns true if this entry is a folder
func (e RemoteEntry) IsFolder() bool {
	return e.Kind == KindFolder
}

// IsFile returns true if this entry is a regular file
func (e RemoteEntry) IsFile() bool {
	return e.Kind == KindFile
}

// LocalFileRecord is the persisted metadata for one synced file.
// Records are keyed by logical path and mutated only by the orchestrator
// after a successful per-file operation.
type LocalFileRecord struct {
	Path         string    `json:"path"`
	ContentHash  string    `json:"hash"`
	ModifiedTime time.Time `json:"modified_time"`
	Size         int64     `json:"size"`
	RemoteID     string    `json:"remote_id"`
	LastSyncedAt time.Time `json:"last_synced"`
}
