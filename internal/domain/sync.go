package domain

import "time"

// FileOutcome records the result of a single per-file operation during a
// sync pass. Per-file failures are collected as outcomes, never raised as
// pass-aborting errors.
type FileOutcome struct {
	// Path is the logical path the operation applied to
	Path string `json:"path"`

	// RemoteID of the source entry (empty for removals)
	RemoteID string `json:"remote_id,omitempty"`

	// Message is a human-readable summary
	Message string `json:"message,omitempty"`

	// ChunksCreated reports how many derived chunks were produced
	ChunksCreated int `json:"chunks_created,omitempty"`

	// Indexed reports whether derived chunks reached the vector index
	Indexed bool `json:"indexed,omitempty"`

	// Err holds the failure for error outcomes
	Err string `json:"error,omitempty"`
}

// SyncResultSet aggregates the outcomes of one sync pass. It is append-only
// while the pass runs and frozen once the pass completes.
type SyncResultSet struct {
	Added   []FileOutcome `json:"added"`
	Updated []FileOutcome `json:"updated"`
	Removed []FileOutcome `json:"removed"`
	Skipped []FileOutcome `json:"skipped"`
	Errors  []FileOutcome `json:"errors"`
}

// Counts returns the number of outcomes in each bucket
func (r SyncResultSet) Counts() (added, updated, removed, skipped, errs int) {
	return len(r.Added), len(r.Updated), len(r.Removed), len(r.Skipped), len(r.Errors)
}

// Processed returns the number of files that were downloaded and handed
// to processing (added + updated)
func (r SyncResultSet) Processed() int {
	return len(r.Added) + len(r.Updated)
}

// PassStatus classifies a completed pass
type PassStatus string

const (
	// PassSuccess indicates every per-file operation succeeded
	PassSuccess PassStatus = "success"

	// PassPartial indicates the pass completed with recorded per-file errors
	PassPartial PassStatus = "partial"

	// PassFailed indicates the pass could not run at all
	PassFailed PassStatus = "failed"
)

// Status derives the pass status from the recorded outcomes
func (r SyncResultSet) Status() PassStatus {
	if len(r.Errors) > 0 {
		return PassPartial
	}
	return PassSuccess
}

// SyncStatus is the externally visible state of the sync subsystem.
// A snapshot of it is returned by the status endpoint.
type SyncStatus struct {
	IsSyncing      bool           `json:"is_syncing"`
	SyncStartedAt  time.Time      `json:"sync_started_at,omitzero"`
	OwnerID        string         `json:"owner_id,omitempty"`
	LastSyncAt     time.Time      `json:"last_sync,omitzero"`
	LastResults    *SyncResultSet `json:"last_sync_results,omitempty"`
	LastError      string         `json:"last_error,omitempty"`
	NextAutoSyncAt time.Time      `json:"next_auto_sync,omitzero"`
}

// BreakerState names a circuit breaker state
type BreakerState string

const (
	BreakerClosed   BreakerState = "CLOSED"
	BreakerOpen     BreakerState = "OPEN"
	BreakerHalfOpen BreakerState = "HALF_OPEN"
)

// BreakerSnapshot is a point-in-time view of a circuit breaker, exposed
// alongside SyncStatus for observability.
type BreakerSnapshot struct {
	State               BreakerState `json:"state"`
	ConsecutiveFailures int          `json:"consecutive_failures"`
	LastFailureAt       time.Time    `json:"last_failure,omitzero"`
}
