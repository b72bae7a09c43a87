// Package scheduler triggers automatic sync passes on a fixed interval.
package scheduler

import (
	"context"
	"time"
)

// SyncRunner executes one sync pass
type SyncRunner interface {
	RunSync(ctx context.Context) error
}

// Status is a point-in-time view of the scheduler
type Status struct {
	Running        bool      `json:"running"`
	LastRunTime    time.Time `json:"last_run_time,omitzero"`
	NextRunTime    time.Time `json:"next_run_time,omitzero"`
	TotalRuns      int       `json:"total_runs"`
	SuccessfulRuns int       `json:"successful_runs"`
	FailedRuns     int       `json:"failed_runs"`
	LastError      string    `json:"last_error,omitempty"`
}
