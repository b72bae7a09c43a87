package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lumadocs/driveline/internal/domain"
	"github.com/lumadocs/driveline/internal/history"
	"github.com/lumadocs/driveline/internal/scheduler"
)

// DaemonService manages the scheduled sync daemon
type DaemonService struct {
	mu        sync.RWMutex
	scheduler *scheduler.IntervalScheduler
	syncSvc   *SyncService
}

// DaemonStatus represents the current daemon status
type DaemonStatus struct {
	Running        bool                `json:"running"`
	SchedulerStats *scheduler.Status   `json:"scheduler,omitempty"`
	LastPass       *history.PassRecord `json:"last_pass,omitempty"`
}

// NewDaemonService creates a daemon around an existing sync service
func NewDaemonService(syncSvc *SyncService) (*DaemonService, error) {
	if syncSvc == nil {
		return nil, fmt.Errorf("sync service cannot be nil")
	}
	return &DaemonService{syncSvc: syncSvc}, nil
}

// Start begins scheduled syncing at the given interval
func (d *DaemonService) Start(ctx context.Context, interval time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.scheduler != nil {
		return fmt.Errorf("daemon is already running")
	}

	runner := &passRunner{syncSvc: d.syncSvc}
	state := d.syncSvc.StateStore()

	sched, err := scheduler.NewIntervalScheduler(interval, runner, state.SetNextAutoSyncAt)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	d.scheduler = sched
	return nil
}

// Stop stops the daemon
func (d *DaemonService) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.scheduler == nil {
		return fmt.Errorf("daemon is not running")
	}

	if err := d.scheduler.Stop(); err != nil {
		return fmt.Errorf("failed to stop scheduler: %w", err)
	}

	d.scheduler = nil
	return nil
}

// Status returns the current daemon status
func (d *DaemonService) Status() *DaemonStatus {
	d.mu.RLock()
	defer d.mu.RUnlock()

	status := &DaemonStatus{
		Running: d.scheduler != nil,
	}
	if d.scheduler != nil {
		status.SchedulerStats = d.scheduler.Status()
	}

	if recs, err := d.syncSvc.History(1); err == nil && len(recs) > 0 {
		status.LastPass = &recs[0]
	}

	return status
}

// Close stops the scheduler and releases the sync service
func (d *DaemonService) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var lastErr error
	if d.scheduler != nil {
		if err := d.scheduler.Stop(); err != nil {
			lastErr = err
		}
		d.scheduler = nil
	}
	if d.syncSvc != nil {
		if err := d.syncSvc.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// passRunner implements scheduler.SyncRunner. A pass already running
// when the tick fires is not an error; the tick is simply skipped.
type passRunner struct {
	syncSvc *SyncService
}

func (r *passRunner) RunSync(ctx context.Context) error {
	_, err := r.syncSvc.RunSync(ctx)
	if errors.Is(err, domain.ErrSyncInProgress) {
		return nil
	}
	return err
}
