// Package service wires the sync engine's components into the
// operations exposed to the CLI and the HTTP API.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lumadocs/driveline/internal/blob"
	"github.com/lumadocs/driveline/internal/config"
	"github.com/lumadocs/driveline/internal/core/breaker"
	"github.com/lumadocs/driveline/internal/core/retry"
	"github.com/lumadocs/driveline/internal/domain"
	"github.com/lumadocs/driveline/internal/embed"
	"github.com/lumadocs/driveline/internal/engine"
	"github.com/lumadocs/driveline/internal/history"
	"github.com/lumadocs/driveline/internal/logger"
	"github.com/lumadocs/driveline/internal/processor"
	"github.com/lumadocs/driveline/internal/source"
	"github.com/lumadocs/driveline/internal/source/gdrive"
	"github.com/lumadocs/driveline/internal/vector"
)

// Status combines everything the status endpoint reports
type Status struct {
	Sync    domain.SyncStatus      `json:"sync"`
	Breaker domain.BreakerSnapshot `json:"circuit_breaker"`
}

// SyncService runs sync passes and exposes sync state
type SyncService struct {
	cfg     *config.Config
	orch    *engine.Orchestrator
	state   *engine.StateStore
	breaker *breaker.CircuitBreaker
	history *history.Store
	index   vector.Index
	log     logger.Logger
}

// NewSyncService builds the full sync stack from configuration
func NewSyncService(ctx context.Context, cfg *config.Config) (*SyncService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	src, err := gdrive.New(ctx, cfg.Drive.ClientID, cfg.Drive.ClientSecret, cfg.Drive.TokenPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive source: %w", err)
	}

	var index vector.Index
	if cfg.Vector.DSN != "" {
		index, err = vector.NewPostgresIndex(ctx, cfg.Vector.DSN, cfg.Vector.Dimension)
		if err != nil {
			return nil, fmt.Errorf("failed to create vector index: %w", err)
		}
	}

	var embedder embed.Embedder
	if index != nil && cfg.Embedding.APIKey != "" {
		embedder, err = embed.NewGemini(ctx, cfg.Embedding.APIKey, cfg.Embedding.Model, cfg.Vector.Dimension)
		if err != nil {
			return nil, fmt.Errorf("failed to create embedder: %w", err)
		}
	}

	return newWithSource(cfg, src, index, embedder)
}

// newWithSource finishes wiring with an already constructed source,
// index, and embedder.
func newWithSource(cfg *config.Config, src source.Source, index vector.Index, embedder embed.Embedder) (*SyncService, error) {
	log := logger.With("component", "sync")

	store, err := blob.NewLocalStore(config.ExpandPath(cfg.Storage.BlobRoot))
	if err != nil {
		return nil, fmt.Errorf("failed to create blob store: %w", err)
	}

	state, err := engine.NewStateStore(cfg.DataDir(), cfg.Sync.StaleTimeout, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create state store: %w", err)
	}

	hist, err := history.NewStore(cfg.DataDir())
	if err != nil {
		return nil, fmt.Errorf("failed to create history store: %w", err)
	}

	cb := breaker.New(cfg.Retry.FailureThreshold, cfg.Retry.RecoveryTimeout)
	exec := retry.New(retry.Config{
		MaxRetries:         cfg.Retry.MaxRetries,
		BaseDelay:          cfg.Retry.BaseDelay,
		MaxDelay:           cfg.Retry.MaxDelay,
		MinRequestInterval: cfg.Retry.MinRequestInterval,
	}, cb, log)

	resilient := engine.NewResilientSource(src, exec)
	proc := processor.NewPipeline(store, index, embedder, nil, log)
	meta := engine.NewMetadataStore(store)

	orch := engine.NewOrchestrator(resilient, proc, store, meta, state, engine.Options{
		FolderID:   cfg.Drive.FolderID,
		PathPrefix: cfg.Sync.PathPrefix,
		Workers:    cfg.Sync.Workers,
		MaxDepth:   cfg.Sync.MaxDepth,
		MaxFiles:   cfg.Sync.MaxFiles,
	}, log)

	return &SyncService{
		cfg:     cfg,
		orch:    orch,
		state:   state,
		breaker: cb,
		history: hist,
		index:   index,
		log:     log,
	}, nil
}

// RunSync executes one sync pass and records it in pass history
func (s *SyncService) RunSync(ctx context.Context) (*domain.SyncResultSet, error) {
	ownerID := uuid.NewString()
	start := time.Now()
	results, err := s.orch.RunOnceAs(ctx, ownerID)
	s.recordPass(ownerID, start, results, err)
	return results, err
}

// StartSync begins a sync pass in the background. The sync slot is
// claimed before returning, so a conflicting pass surfaces here as
// ErrSyncInProgress rather than inside the goroutine. The pass outlives
// the caller's request context.
func (s *SyncService) StartSync(ctx context.Context) (string, error) {
	ownerID := uuid.NewString()
	start := time.Now()
	err := s.orch.StartAs(context.WithoutCancel(ctx), ownerID, func(results *domain.SyncResultSet, passErr error) {
		s.recordPass(ownerID, start, results, passErr)
	})
	if err != nil {
		return "", err
	}
	return ownerID, nil
}

// recordPass writes one pass outcome to the history store
func (s *SyncService) recordPass(ownerID string, start time.Time, results *domain.SyncResultSet, passErr error) {
	record := history.PassRecord{
		OwnerID:   ownerID,
		StartTime: start,
		EndTime:   time.Now(),
	}
	switch {
	case passErr != nil:
		record.Status = domain.PassFailed
		record.Error = passErr.Error()
	default:
		record.Status = results.Status()
	}
	if results != nil {
		record.Added, record.Updated, record.Removed, record.Skipped, record.Errors = results.Counts()
	}
	if err := s.history.SavePass(record); err != nil {
		s.log.Warn("failed to record pass history", "error", err)
	}
}

// Status reports the sync slot state and the circuit breaker snapshot
func (s *SyncService) Status() Status {
	return Status{
		Sync:    s.state.Status(),
		Breaker: s.breaker.Snapshot(),
	}
}

// ForceReset clears the sync slot and closes the circuit breaker.
// Synced content, metadata, and pass history are untouched.
func (s *SyncService) ForceReset() error {
	if err := s.state.ForceReset(); err != nil {
		return err
	}
	s.breaker.Reset()
	s.log.Info("sync state and circuit breaker reset")
	return nil
}

// History returns the most recent pass records
func (s *SyncService) History(limit int) ([]history.PassRecord, error) {
	return s.history.GetHistory(limit)
}

// StateStore exposes the sync state store for scheduler integration
func (s *SyncService) StateStore() *engine.StateStore {
	return s.state
}

// Close releases all resources
func (s *SyncService) Close() error {
	var lastErr error
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			lastErr = err
		}
	}
	if s.index != nil {
		s.index.Close()
	}
	return lastErr
}
