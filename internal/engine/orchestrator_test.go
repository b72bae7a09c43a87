package engine

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/lumadocs/driveline/internal/blob"
	"github.com/lumadocs/driveline/internal/domain"
	"github.com/lumadocs/driveline/internal/logger"
	"github.com/lumadocs/driveline/internal/processor"
)

// fakeRemote serves a folder tree and file contents from memory
type fakeRemote struct {
	mu       sync.Mutex
	children map[string][]domain.RemoteEntry
	content  map[string][]byte
	failList map[string]error
	failGet  map[string]error
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		children: make(map[string][]domain.RemoteEntry),
		content:  make(map[string][]byte),
		failList: make(map[string]error),
		failGet:  make(map[string]error),
	}
}

func (f *fakeRemote) addFile(parent, id, name, content string) {
	f.children[parent] = append(f.children[parent], domain.RemoteEntry{
		ID: id, Name: name, Kind: domain.KindFile, MimeType: "text/plain",
	})
	f.content[id] = []byte(content)
}

func (f *fakeRemote) addFolder(parent, id, name string) {
	f.children[parent] = append(f.children[parent], domain.RemoteEntry{
		ID: id, Name: name, Kind: domain.KindFolder,
	})
}

func (f *fakeRemote) removeFile(parent, id string) {
	entries := f.children[parent]
	for i, e := range entries {
		if e.ID == id {
			f.children[parent] = append(entries[:i:i], entries[i+1:]...)
			break
		}
	}
	delete(f.content, id)
}

func (f *fakeRemote) ListChildren(ctx context.Context, folderID string) ([]domain.RemoteEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failList[folderID]; ok {
		return nil, err
	}
	return append([]domain.RemoteEntry(nil), f.children[folderID]...), nil
}

func (f *fakeRemote) Download(ctx context.Context, fileID string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failGet[fileID]; ok {
		return nil, err
	}
	content, ok := f.content[fileID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

type testEnv struct {
	remote *fakeRemote
	store  *blob.LocalStore
	meta   *MetadataStore
	state  *StateStore
	orch   *Orchestrator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := blob.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	state, err := NewStateStore(t.TempDir(), 10*time.Minute, &logger.NullLogger{})
	if err != nil {
		t.Fatalf("NewStateStore failed: %v", err)
	}

	remote := newFakeRemote()
	meta := NewMetadataStore(store)
	proc := processor.NewPipeline(store, nil, nil, nil, &logger.NullLogger{})
	orch := NewOrchestrator(remote, proc, store, meta, state, Options{
		FolderID:   "root",
		PathPrefix: "documents",
		Workers:    2,
		MaxDepth:   10,
		MaxFiles:   1000,
	}, &logger.NullLogger{})

	return &testEnv{remote: remote, store: store, meta: meta, state: state, orch: orch}
}

func TestRunOnceFirstPassAddsEverything(t *testing.T) {
	env := newTestEnv(t)
	env.remote.addFile("root", "f1", "a.txt", "content a")
	env.remote.addFolder("root", "d1", "sub")
	env.remote.addFile("d1", "f2", "b.txt", "content b")

	results, err := env.orch.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	if len(results.Added) != 2 {
		t.Fatalf("Expected 2 added, got %+v", results)
	}
	if len(results.Errors) != 0 {
		t.Errorf("Expected no errors, got %+v", results.Errors)
	}

	exists, _ := env.store.Exists(context.Background(), "documents/a.txt")
	if !exists {
		t.Error("Expected documents/a.txt stored")
	}
	exists, _ = env.store.Exists(context.Background(), "documents/sub/b.txt")
	if !exists {
		t.Error("Expected documents/sub/b.txt stored")
	}

	records, err := env.meta.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("Expected 2 metadata records, got %d", len(records))
	}
}

func TestRunOnceSecondPassSkipsUnchanged(t *testing.T) {
	env := newTestEnv(t)
	env.remote.addFile("root", "f1", "a.txt", "content a")

	if _, err := env.orch.RunOnce(context.Background()); err != nil {
		t.Fatalf("First RunOnce failed: %v", err)
	}

	results, err := env.orch.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("Second RunOnce failed: %v", err)
	}
	if len(results.Skipped) != 1 {
		t.Errorf("Expected 1 skipped, got %+v", results)
	}
	if len(results.Added)+len(results.Updated) != 0 {
		t.Errorf("Expected nothing re-ingested, got %+v", results)
	}
}

func TestRunOnceDetectsContentChange(t *testing.T) {
	env := newTestEnv(t)
	env.remote.addFile("root", "f1", "a.txt", "version one")

	if _, err := env.orch.RunOnce(context.Background()); err != nil {
		t.Fatalf("First RunOnce failed: %v", err)
	}

	env.remote.content["f1"] = []byte("version two")

	results, err := env.orch.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("Second RunOnce failed: %v", err)
	}
	if len(results.Updated) != 1 {
		t.Fatalf("Expected 1 updated, got %+v", results)
	}

	rc, err := env.store.Get(context.Background(), "documents/a.txt")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "version two" {
		t.Errorf("Expected stored content replaced, got %q", data)
	}
}

func TestRunOnceRemovesDeletedFiles(t *testing.T) {
	env := newTestEnv(t)
	env.remote.addFile("root", "f1", "a.txt", "content a")
	env.remote.addFile("root", "f2", "b.txt", "content b")

	if _, err := env.orch.RunOnce(context.Background()); err != nil {
		t.Fatalf("First RunOnce failed: %v", err)
	}

	env.remote.removeFile("root", "f2")

	results, err := env.orch.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("Second RunOnce failed: %v", err)
	}
	if len(results.Removed) != 1 || results.Removed[0].Path != "documents/b.txt" {
		t.Fatalf("Expected b.txt removed, got %+v", results)
	}

	exists, _ := env.store.Exists(context.Background(), "documents/b.txt")
	if exists {
		t.Error("Expected documents/b.txt deleted from store")
	}

	records, _ := env.meta.Load(context.Background())
	if _, ok := records["documents/b.txt"]; ok {
		t.Error("Expected metadata record dropped")
	}
}

func TestRunOnceDownloadFailureIsolated(t *testing.T) {
	env := newTestEnv(t)
	env.remote.addFile("root", "f1", "good.txt", "fine")
	env.remote.addFile("root", "f2", "bad.txt", "broken")
	env.remote.failGet["f2"] = domain.ErrRemoteUnavailable

	results, err := env.orch.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	if len(results.Added) != 1 || results.Added[0].Path != "documents/good.txt" {
		t.Errorf("Expected good.txt added, got %+v", results.Added)
	}
	if len(results.Errors) != 1 || results.Errors[0].Path != "documents/bad.txt" {
		t.Errorf("Expected bad.txt in errors, got %+v", results.Errors)
	}
	if results.Status() != domain.PassPartial {
		t.Errorf("Expected partial pass, got %v", results.Status())
	}
}

func TestRunOnceIncompleteDiscoverySkipsRemovals(t *testing.T) {
	env := newTestEnv(t)
	env.remote.addFile("root", "f1", "a.txt", "content a")
	env.remote.addFolder("root", "d1", "sub")
	env.remote.addFile("d1", "f2", "b.txt", "content b")

	if _, err := env.orch.RunOnce(context.Background()); err != nil {
		t.Fatalf("First RunOnce failed: %v", err)
	}

	// the subtree holding b.txt becomes unlistable; b.txt must survive
	env.remote.failList["d1"] = domain.ErrPermissionDenied

	results, err := env.orch.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("Second RunOnce failed: %v", err)
	}
	if len(results.Removed) != 0 {
		t.Errorf("Expected no removals with incomplete discovery, got %+v", results.Removed)
	}
	if len(results.Errors) == 0 {
		t.Error("Expected folder listing failure recorded")
	}

	records, _ := env.meta.Load(context.Background())
	if _, ok := records["documents/sub/b.txt"]; !ok {
		t.Error("Expected b.txt metadata preserved")
	}
}

func TestRunOnceConcurrentPassRejected(t *testing.T) {
	env := newTestEnv(t)

	if err := env.state.TryBegin("other-pass"); err != nil {
		t.Fatalf("TryBegin failed: %v", err)
	}

	_, err := env.orch.RunOnce(context.Background())
	if !errors.Is(err, domain.ErrSyncInProgress) {
		t.Errorf("Expected ErrSyncInProgress, got %v", err)
	}
}

func TestRunOnceReleasesSlotOnCompletion(t *testing.T) {
	env := newTestEnv(t)
	env.remote.addFile("root", "f1", "a.txt", "content")

	if _, err := env.orch.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	if env.state.Status().IsSyncing {
		t.Error("Expected slot released after pass")
	}
	if _, err := env.orch.RunOnce(context.Background()); err != nil {
		t.Errorf("Expected second pass runnable, got %v", err)
	}
}

func TestRunOnceCancelled(t *testing.T) {
	env := newTestEnv(t)
	env.remote.addFile("root", "f1", "a.txt", "content")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.orch.RunOnce(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}

	// the slot must not stay wedged after cancellation
	if env.state.Status().IsSyncing {
		t.Error("Expected slot released after cancelled pass")
	}
}

func TestRunOnceRestartAfterCrashResumes(t *testing.T) {
	env := newTestEnv(t)
	env.remote.addFile("root", "f1", "a.txt", "content a")
	env.remote.addFile("root", "f2", "b.txt", "content b")

	if _, err := env.orch.RunOnce(context.Background()); err != nil {
		t.Fatalf("First RunOnce failed: %v", err)
	}

	// a re-run over identical remote state is a no-op
	results, err := env.orch.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("Second RunOnce failed: %v", err)
	}
	if len(results.Skipped) != 2 || results.Processed() != 0 {
		t.Errorf("Expected idempotent re-run, got %+v", results)
	}
}
