package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sync"

	"github.com/google/uuid"

	"github.com/lumadocs/driveline/internal/blob"
	"github.com/lumadocs/driveline/internal/core/checksum"
	"github.com/lumadocs/driveline/internal/core/diff"
	"github.com/lumadocs/driveline/internal/core/traverse"
	"github.com/lumadocs/driveline/internal/domain"
	"github.com/lumadocs/driveline/internal/logger"
	"github.com/lumadocs/driveline/internal/processor"
	"github.com/lumadocs/driveline/internal/source"
)

// DefaultWorkers bounds concurrent per-file operations within one pass
const DefaultWorkers = 4

// Options configures an Orchestrator
type Options struct {
	// FolderID is the remote folder a pass traverses from
	FolderID string

	// PathPrefix is prepended to remote paths to form logical paths
	PathPrefix string

	// Workers bounds concurrent per-file operations
	Workers int

	// MaxDepth and MaxFiles bound traversal
	MaxDepth int
	MaxFiles int
}

// Orchestrator runs one full sync pass: discover, detect changes,
// ingest, evict.
type Orchestrator struct {
	src      source.Source
	walker   *traverse.Walker
	detector *diff.Detector
	proc     processor.Processor
	store    blob.Store
	meta     *MetadataStore
	state    *StateStore
	opts     Options
	log      logger.Logger
}

// NewOrchestrator wires a sync orchestrator. src should already carry
// the resilience chain (see NewResilientSource).
func NewOrchestrator(src source.Source, proc processor.Processor, store blob.Store, meta *MetadataStore, state *StateStore, opts Options, log logger.Logger) *Orchestrator {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if log == nil {
		log = logger.Get()
	}
	return &Orchestrator{
		src:      src,
		walker:   traverse.NewWalker(src, opts.MaxDepth, opts.MaxFiles, log),
		detector: diff.NewDetector(),
		proc:     proc,
		store:    store,
		meta:     meta,
		state:    state,
		opts:     opts,
		log:      log,
	}
}

// RunOnce executes a single sync pass under a fresh owner ID
func (o *Orchestrator) RunOnce(ctx context.Context) (*domain.SyncResultSet, error) {
	return o.RunOnceAs(ctx, uuid.NewString())
}

// RunOnceAs executes a single sync pass. Only one pass runs at a time;
// a concurrent call fails fast with ErrSyncInProgress. Per-file failures
// are collected into the result set, never aborting the pass.
func (o *Orchestrator) RunOnceAs(ctx context.Context, ownerID string) (*domain.SyncResultSet, error) {
	if err := o.state.TryBegin(ownerID); err != nil {
		return nil, err
	}
	return o.run(ctx, ownerID)
}

// StartAs claims the sync slot synchronously, so the caller learns
// immediately whether a pass started, then runs the pass on its own
// goroutine. done receives the outcome when the pass finishes.
func (o *Orchestrator) StartAs(ctx context.Context, ownerID string, done func(*domain.SyncResultSet, error)) error {
	if err := o.state.TryBegin(ownerID); err != nil {
		return err
	}
	go func() {
		results, err := o.run(ctx, ownerID)
		if done != nil {
			done(results, err)
		}
	}()
	return nil
}

// run executes the pass body. The caller must already hold the sync slot
// for ownerID.
func (o *Orchestrator) run(ctx context.Context, ownerID string) (results *domain.SyncResultSet, err error) {
	results = &domain.SyncResultSet{}
	defer func() {
		if finishErr := o.state.Finish(ownerID, results, err); finishErr != nil {
			o.log.Error("failed to release sync slot", "error", finishErr)
		}
	}()

	o.log.Info("sync pass started", "owner", ownerID, "folder", o.opts.FolderID)

	records, err := o.meta.Load(ctx)
	if err != nil {
		return results, err
	}

	walkRes, err := o.walker.Walk(ctx, o.opts.FolderID)
	if err != nil {
		return results, err
	}

	for _, fe := range walkRes.Errors {
		results.Errors = append(results.Errors, domain.FileOutcome{
			Path: o.logicalPath(fe.Path),
			Err:  fe.Err.Error(),
		})
	}

	remote := make([]domain.RemoteEntry, len(walkRes.Files))
	for i, entry := range walkRes.Files {
		entry.Path = o.logicalPath(entry.Path)
		remote[i] = entry
	}

	var mu sync.Mutex // guards results and records
	o.processFiles(ctx, remote, records, results, &mu)

	// An incomplete listing must not trigger evictions: a file missing
	// from a failed or truncated subtree may still exist remotely.
	discoveryComplete := !walkRes.Truncated &&
		len(walkRes.Errors) == 0 &&
		len(walkRes.DepthSkipped) == 0
	if discoveryComplete && ctx.Err() == nil {
		o.removeMissing(ctx, remote, records, results, &mu)
	} else if !discoveryComplete {
		o.log.Warn("discovery incomplete, skipping removal phase",
			"truncated", walkRes.Truncated,
			"folder_errors", len(walkRes.Errors),
			"depth_skipped", len(walkRes.DepthSkipped))
	}

	// Persist progress even when the pass was cancelled mid-way, so the
	// next pass resumes instead of redoing completed work.
	saveCtx := context.WithoutCancel(ctx)
	if saveErr := o.meta.Save(saveCtx, records); saveErr != nil {
		results.Errors = append(results.Errors, domain.FileOutcome{
			Path: MetadataKey,
			Err:  saveErr.Error(),
		})
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
		return results, err
	}

	added, updated, removed, skipped, errs := results.Counts()
	o.log.Info("sync pass finished",
		"owner", ownerID,
		"added", added,
		"updated", updated,
		"removed", removed,
		"skipped", skipped,
		"errors", errs)
	return results, nil
}

// logicalPath maps a traversal path to the logical path used for
// storage and indexing.
func (o *Orchestrator) logicalPath(walkPath string) string {
	if o.opts.PathPrefix == "" {
		return walkPath
	}
	return path.Join(o.opts.PathPrefix, walkPath)
}

// processFiles classifies and ingests remote files with a bounded
// worker pool. Cancellation stops between files, never mid-file.
func (o *Orchestrator) processFiles(ctx context.Context, remote []domain.RemoteEntry, records map[string]domain.LocalFileRecord, results *domain.SyncResultSet, mu *sync.Mutex) {
	jobs := make(chan domain.RemoteEntry)
	var wg sync.WaitGroup

	for i := 0; i < o.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for entry := range jobs {
				if ctx.Err() != nil {
					continue
				}
				o.processOne(ctx, entry, records, results, mu)
			}
		}()
	}

	for _, entry := range remote {
		jobs <- entry
	}
	close(jobs)
	wg.Wait()
}

// processOne downloads one file, classifies it by content hash, and
// ingests it when new or changed.
func (o *Orchestrator) processOne(ctx context.Context, entry domain.RemoteEntry, records map[string]domain.LocalFileRecord, results *domain.SyncResultSet, mu *sync.Mutex) {
	fail := func(err error) {
		o.log.Warn("file sync failed", "path", entry.Path, "error", err)
		mu.Lock()
		results.Errors = append(results.Errors, domain.FileOutcome{
			Path:     entry.Path,
			RemoteID: entry.ID,
			Err:      err.Error(),
		})
		mu.Unlock()
	}

	content, err := o.download(ctx, entry.ID)
	if err != nil {
		fail(err)
		return
	}

	hash, err := checksum.Sum(content, checksum.DefaultAlgorithm)
	if err != nil {
		fail(err)
		return
	}

	mu.Lock()
	var rec *domain.LocalFileRecord
	if r, ok := records[entry.Path]; ok {
		rec = &r
	}
	mu.Unlock()

	kind := o.detector.Classify(rec, hash)
	if kind == diff.ChangeUnchanged {
		mu.Lock()
		results.Skipped = append(results.Skipped, domain.FileOutcome{
			Path:     entry.Path,
			RemoteID: entry.ID,
			Message:  "content unchanged",
		})
		mu.Unlock()
		return
	}

	if err := o.store.Put(ctx, entry.Path, bytes.NewReader(content)); err != nil {
		fail(fmt.Errorf("failed to store content: %w", err))
		return
	}

	procRes, err := o.proc.Process(ctx, entry.Path, entry.MimeType, content)
	if err != nil {
		fail(fmt.Errorf("failed to process content: %w", err))
		return
	}

	outcome := domain.FileOutcome{
		Path:          entry.Path,
		RemoteID:      entry.ID,
		ChunksCreated: procRes.ChunksCreated,
		Indexed:       procRes.Indexed,
	}

	mu.Lock()
	records[entry.Path] = domain.LocalFileRecord{
		Path:         entry.Path,
		ContentHash:  hash,
		ModifiedTime: entry.ModifiedTime,
		Size:         int64(len(content)),
		RemoteID:     entry.ID,
		LastSyncedAt: o.state.now(),
	}
	if kind == diff.ChangeAdded {
		results.Added = append(results.Added, outcome)
	} else {
		results.Updated = append(results.Updated, outcome)
	}
	mu.Unlock()
}

// removeMissing evicts local state for files no longer present remotely
func (o *Orchestrator) removeMissing(ctx context.Context, remote []domain.RemoteEntry, records map[string]domain.LocalFileRecord, results *domain.SyncResultSet, mu *sync.Mutex) {
	for _, p := range o.detector.Removed(remote, records) {
		if ctx.Err() != nil {
			return
		}

		if err := o.proc.Remove(ctx, p); err != nil {
			mu.Lock()
			results.Errors = append(results.Errors, domain.FileOutcome{Path: p, Err: err.Error()})
			mu.Unlock()
			continue
		}
		if err := o.store.Delete(ctx, p); err != nil {
			mu.Lock()
			results.Errors = append(results.Errors, domain.FileOutcome{Path: p, Err: err.Error()})
			mu.Unlock()
			continue
		}

		mu.Lock()
		delete(records, p)
		results.Removed = append(results.Removed, domain.FileOutcome{Path: p})
		mu.Unlock()
	}
}

func (o *Orchestrator) download(ctx context.Context, fileID string) ([]byte, error) {
	rc, err := o.src.Download(ctx, fileID)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
