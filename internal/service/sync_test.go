package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/lumadocs/driveline/internal/config"
	"github.com/lumadocs/driveline/internal/domain"
	"github.com/lumadocs/driveline/internal/testutil"
)

// fakeSource serves a flat folder of files from memory
type fakeSource struct {
	mu      sync.Mutex
	entries []domain.RemoteEntry
	content map[string][]byte
}

func newFakeSource() *fakeSource {
	return &fakeSource{content: make(map[string][]byte)}
}

func (f *fakeSource) addFile(id, name, content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, domain.RemoteEntry{
		ID: id, Name: name, Kind: domain.KindFile, MimeType: "text/plain",
	})
	f.content[id] = []byte(content)
}

func (f *fakeSource) ListChildren(ctx context.Context, folderID string) ([]domain.RemoteEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if folderID != "root" {
		return nil, nil
	}
	return append([]domain.RemoteEntry(nil), f.entries...), nil
}

func (f *fakeSource) Download(ctx context.Context, fileID string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	content, ok := f.content[fileID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Drive: config.DriveConfig{FolderID: "root"},
		Sync: config.SyncConfig{
			Interval:     time.Hour,
			MaxFiles:     1000,
			MaxDepth:     10,
			StaleTimeout: 10 * time.Minute,
			Workers:      2,
			PathPrefix:   "documents",
		},
		Retry: config.RetryConfig{
			MaxRetries:         1,
			BaseDelay:          time.Millisecond,
			MaxDelay:           10 * time.Millisecond,
			MinRequestInterval: 0,
			FailureThreshold:   5,
			RecoveryTimeout:    time.Minute,
		},
		Storage: config.StorageConfig{
			BlobRoot: t.TempDir(),
			DataDir:  t.TempDir(),
		},
	}
}

func newTestService(t *testing.T, src *fakeSource) *SyncService {
	t.Helper()
	svc, err := newWithSource(testConfig(t), src, nil, nil)
	if err != nil {
		t.Fatalf("newWithSource failed: %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	return svc
}

func TestRunSyncRecordsHistory(t *testing.T) {
	src := newFakeSource()
	src.addFile("f1", "a.txt", "content a")
	src.addFile("f2", "b.txt", "content b")
	svc := newTestService(t, src)

	results, err := svc.RunSync(context.Background())
	if err != nil {
		t.Fatalf("RunSync failed: %v", err)
	}
	if len(results.Added) != 2 {
		t.Errorf("Expected 2 added, got %d", len(results.Added))
	}

	records, err := svc.History(10)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 pass record, got %d", len(records))
	}
	rec := records[0]
	if rec.Status != domain.PassSuccess {
		t.Errorf("Expected success status, got %s", rec.Status)
	}
	if rec.Added != 2 {
		t.Errorf("Expected 2 added in record, got %d", rec.Added)
	}
	if rec.OwnerID == "" {
		t.Error("Expected owner ID recorded")
	}
}

func TestRunSyncSecondPassSkipsUnchanged(t *testing.T) {
	src := newFakeSource()
	src.addFile("f1", "a.txt", "content a")
	svc := newTestService(t, src)

	if _, err := svc.RunSync(context.Background()); err != nil {
		t.Fatalf("first RunSync failed: %v", err)
	}
	results, err := svc.RunSync(context.Background())
	if err != nil {
		t.Fatalf("second RunSync failed: %v", err)
	}
	if len(results.Added) != 0 || len(results.Skipped) != 1 {
		t.Errorf("Expected 0 added and 1 skipped, got %d and %d",
			len(results.Added), len(results.Skipped))
	}

	records, err := svc.History(10)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("Expected 2 pass records, got %d", len(records))
	}
}

func TestStartSyncRunsInBackground(t *testing.T) {
	src := newFakeSource()
	src.addFile("f1", "a.txt", "content a")
	svc := newTestService(t, src)

	ownerID, err := svc.StartSync(context.Background())
	if err != nil {
		t.Fatalf("StartSync failed: %v", err)
	}
	if ownerID == "" {
		t.Error("Expected owner ID for started pass")
	}

	testutil.AssertEventually(t, 2*time.Second, func() bool {
		records, err := svc.History(1)
		return err == nil && len(records) == 1
	}, "background pass did not complete")

	records, err := svc.History(1)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if records[0].OwnerID != ownerID {
		t.Errorf("Expected pass owner %s, got %s", ownerID, records[0].OwnerID)
	}
	if records[0].Added != 1 {
		t.Errorf("Expected 1 added, got %d", records[0].Added)
	}
}

func TestStartSyncConflict(t *testing.T) {
	svc := newTestService(t, newFakeSource())

	// hold the slot so the background start must fail
	if err := svc.state.TryBegin("held"); err != nil {
		t.Fatalf("TryBegin failed: %v", err)
	}

	if _, err := svc.StartSync(context.Background()); !errors.Is(err, domain.ErrSyncInProgress) {
		t.Errorf("Expected ErrSyncInProgress, got %v", err)
	}
}

func TestStatusReflectsLastPass(t *testing.T) {
	src := newFakeSource()
	src.addFile("f1", "a.txt", "content a")
	svc := newTestService(t, src)

	before := svc.Status()
	if before.Sync.IsSyncing {
		t.Error("Expected no pass in progress before first run")
	}
	if before.Breaker.State != domain.BreakerClosed {
		t.Errorf("Expected closed breaker, got %s", before.Breaker.State)
	}

	if _, err := svc.RunSync(context.Background()); err != nil {
		t.Fatalf("RunSync failed: %v", err)
	}

	after := svc.Status()
	if after.Sync.IsSyncing {
		t.Error("Expected sync slot released after pass")
	}
	if after.Sync.LastSyncAt.IsZero() {
		t.Error("Expected last sync time recorded")
	}
	if after.Sync.LastResults == nil || len(after.Sync.LastResults.Added) != 1 {
		t.Error("Expected last results with 1 added file")
	}
}

func TestForceResetClearsState(t *testing.T) {
	svc := newTestService(t, newFakeSource())

	if err := svc.ForceReset(); err != nil {
		t.Fatalf("ForceReset failed: %v", err)
	}

	status := svc.Status()
	if status.Sync.IsSyncing {
		t.Error("Expected no pass in progress after reset")
	}
	if status.Breaker.State != domain.BreakerClosed {
		t.Errorf("Expected closed breaker after reset, got %s", status.Breaker.State)
	}
}

func TestForceResetKeepsContent(t *testing.T) {
	src := newFakeSource()
	src.addFile("f1", "a.txt", "content a")
	svc := newTestService(t, src)

	if _, err := svc.RunSync(context.Background()); err != nil {
		t.Fatalf("RunSync failed: %v", err)
	}
	if err := svc.ForceReset(); err != nil {
		t.Fatalf("ForceReset failed: %v", err)
	}

	// the next pass still sees its metadata and skips unchanged files
	results, err := svc.RunSync(context.Background())
	if err != nil {
		t.Fatalf("RunSync after reset failed: %v", err)
	}
	if len(results.Skipped) != 1 {
		t.Errorf("Expected 1 skipped after reset, got %d", len(results.Skipped))
	}

	records, err := svc.History(10)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("Expected history preserved across reset, got %d records", len(records))
	}
}
