package domain

import "errors"

// Remote source errors
var (
	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = errors.New("resource not found")

	// ErrPermissionDenied indicates insufficient permissions
	ErrPermissionDenied = errors.New("permission denied")

	// ErrRemoteUnavailable indicates a network or API failure against the
	// remote source; operations failing with it are retried
	ErrRemoteUnavailable = errors.New("remote source unavailable")

	// ErrRateLimited indicates the remote store rejected a call for quota
	ErrRateLimited = errors.New("rate limit exceeded")
)

// Resilience errors
var (
	// ErrCircuitOpen indicates the circuit breaker is open and the call
	// was refused without reaching the remote source
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrMaxDepthReached indicates traversal stopped at its depth limit
	ErrMaxDepthReached = errors.New("max traversal depth reached")

	// ErrMaxFilesReached indicates traversal stopped at its file limit
	ErrMaxFilesReached = errors.New("max file count reached")
)

// Sync state errors
var (
	// ErrSyncInProgress indicates another pass already holds the sync slot
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrStateConflict indicates the sync slot could not be acquired and
	// the existing holder is not stale
	ErrStateConflict = errors.New("sync state conflict")

	// ErrStateStale indicates the persisted in-progress state belongs to a
	// dead or timed-out owner and must be force released
	ErrStateStale = errors.New("sync state is stale")
)

// Config errors
var (
	// ErrConfigNotFound indicates config file not found
	ErrConfigNotFound = errors.New("config file not found")

	// ErrConfigInvalid indicates config file is malformed
	ErrConfigInvalid = errors.New("invalid config")
)
