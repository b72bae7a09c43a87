// Package engine runs and coordinates synchronization passes.
package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/lumadocs/driveline/internal/domain"
	"github.com/lumadocs/driveline/internal/logger"
)

const (
	// MarkerFileName is the on-disk marker recording an in-progress pass
	MarkerFileName = "sync_in_progress.json"

	// DefaultStaleTimeout after which an in-progress marker with an
	// unverifiable owner is considered abandoned
	DefaultStaleTimeout = 10 * time.Minute
)

// marker is the persisted record of a running pass. It survives crashes
// so the next start can detect and recover an abandoned slot.
type marker struct {
	OwnerID   string    `json:"owner_id"`
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	StartedAt time.Time `json:"started_at"`
}

// StateStore owns the single sync slot and the pass status reported to
// clients. All methods are safe for concurrent use.
type StateStore struct {
	mu sync.Mutex

	markerPath   string
	staleTimeout time.Duration
	log          logger.Logger

	status domain.SyncStatus

	now func() time.Time
}

// NewStateStore creates a state store persisting its marker under dir.
// A leftover marker from a crashed process is detected and cleared.
func NewStateStore(dir string, staleTimeout time.Duration, log logger.Logger) (*StateStore, error) {
	if staleTimeout <= 0 {
		staleTimeout = DefaultStaleTimeout
	}
	if log == nil {
		log = logger.Get()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	s := &StateStore{
		markerPath:   filepath.Join(dir, MarkerFileName),
		staleTimeout: staleTimeout,
		log:          log,
		now:          time.Now,
	}

	if m, err := s.readMarker(); err == nil {
		if s.isAbandoned(m) {
			s.log.Warn("recovered abandoned sync marker",
				"owner", m.OwnerID,
				"pid", m.PID,
				"started_at", m.StartedAt)
			if err := os.Remove(s.markerPath); err != nil && !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to clear abandoned marker: %w", err)
			}
		} else {
			// another live process is mid-pass; report it
			s.status.IsSyncing = true
			s.status.OwnerID = m.OwnerID
			s.status.SyncStartedAt = m.StartedAt
		}
	}

	return s, nil
}

// TryBegin claims the sync slot for ownerID. It fails with
// ErrSyncInProgress when a live pass holds the slot; an abandoned slot
// is reclaimed.
func (s *StateStore) TryBegin(ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m, err := s.readMarker(); err == nil {
		if !s.isAbandoned(m) {
			return fmt.Errorf("%w: pass %s running since %s",
				domain.ErrSyncInProgress, m.OwnerID, m.StartedAt.Format(time.RFC3339))
		}
		s.log.Warn("reclaiming abandoned sync slot",
			"previous_owner", m.OwnerID,
			"started_at", m.StartedAt)
	}

	hostname, _ := os.Hostname()
	startedAt := s.now()
	m := marker{
		OwnerID:   ownerID,
		PID:       os.Getpid(),
		Hostname:  hostname,
		StartedAt: startedAt,
	}
	if err := s.writeMarker(m); err != nil {
		return err
	}

	s.status.IsSyncing = true
	s.status.OwnerID = ownerID
	s.status.SyncStartedAt = startedAt
	return nil
}

// Finish releases the slot held by ownerID and records the pass outcome.
// A mismatched owner means the slot was reclaimed; the late finisher
// must not clobber the new pass.
func (s *StateStore) Finish(ownerID string, results *domain.SyncResultSet, passErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m, err := s.readMarker(); err == nil && m.OwnerID != ownerID {
		return fmt.Errorf("%w: slot now held by %s", domain.ErrStateConflict, m.OwnerID)
	}

	if err := os.Remove(s.markerPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove sync marker: %w", err)
	}

	now := s.now()
	s.status.IsSyncing = false
	s.status.OwnerID = ""
	s.status.SyncStartedAt = time.Time{}
	s.status.LastSyncAt = now
	s.status.LastResults = results
	if passErr != nil {
		s.status.LastError = passErr.Error()
	} else {
		s.status.LastError = ""
	}
	return nil
}

// SetNextAutoSyncAt records when the scheduler will run the next pass
func (s *StateStore) SetNextAutoSyncAt(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.NextAutoSyncAt = t
}

// Status returns a snapshot of the current sync status
func (s *StateStore) Status() domain.SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// ForceReset clears the slot unconditionally. Recovery hatch for a slot
// wedged by a crashed pass the staleness checks could not classify.
func (s *StateStore) ForceReset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.markerPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove sync marker: %w", err)
	}

	s.status.IsSyncing = false
	s.status.OwnerID = ""
	s.status.SyncStartedAt = time.Time{}
	s.log.Info("sync state forcibly reset")
	return nil
}

// isAbandoned reports whether a marker's owner is no longer running.
// Same host: the owner pid is checked directly. Otherwise only the
// stale timeout applies.
func (s *StateStore) isAbandoned(m *marker) bool {
	hostname, _ := os.Hostname()
	if m.Hostname == hostname {
		if !processExists(m.PID) {
			return true
		}
	}
	return s.now().Sub(m.StartedAt) > s.staleTimeout
}

func (s *StateStore) readMarker() (*marker, error) {
	data, err := os.ReadFile(s.markerPath)
	if err != nil {
		return nil, err
	}
	var m marker
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid sync marker: %w", err)
	}
	return &m, nil
}

func (s *StateStore) writeMarker(m marker) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}

	tempPath := s.markerPath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write sync marker: %w", err)
	}
	if err := os.Rename(tempPath, s.markerPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename sync marker: %w", err)
	}
	return nil
}
