package blob

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/lumadocs/driveline/internal/domain"
)

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()
	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	return s
}

func mustPut(t *testing.T, s *LocalStore, key, content string) {
	t.Helper()
	if err := s.Put(context.Background(), key, strings.NewReader(content)); err != nil {
		t.Fatalf("Put(%q) failed: %v", key, err)
	}
}

func readKey(t *testing.T, s *LocalStore, key string) string {
	t.Helper()
	rc, err := s.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("Get(%q) failed: %v", key, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	return string(data)
}

func TestPutGet(t *testing.T) {
	s := newTestStore(t)

	mustPut(t, s, "documents/report.pdf", "pdf content")

	if got := readKey(t, s, "documents/report.pdf"); got != "pdf content" {
		t.Errorf("Expected 'pdf content', got %q", got)
	}
}

func TestPutOverwrites(t *testing.T) {
	s := newTestStore(t)

	mustPut(t, s, "doc.txt", "first")
	mustPut(t, s, "doc.txt", "second")

	if got := readKey(t, s, "doc.txt"); got != "second" {
		t.Errorf("Expected 'second', got %q", got)
	}
}

func TestGetMissing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), "missing.txt")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)

	mustPut(t, s, "documents/sub/doc.txt", "content")
	if err := s.Delete(context.Background(), "documents/sub/doc.txt"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	exists, err := s.Exists(context.Background(), "documents/sub/doc.txt")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("Expected object gone after delete")
	}
}

func TestDeleteMissingIsNoop(t *testing.T) {
	s := newTestStore(t)

	if err := s.Delete(context.Background(), "never-existed.txt"); err != nil {
		t.Errorf("Expected no error deleting missing key, got %v", err)
	}
}

func TestDeletePrunesEmptyDirs(t *testing.T) {
	s := newTestStore(t)

	mustPut(t, s, "a/b/c/doc.txt", "content")
	mustPut(t, s, "a/keep.txt", "content")

	if err := s.Delete(context.Background(), "a/b/c/doc.txt"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	keys, err := s.List(context.Background(), "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(keys) != 1 || keys[0] != "a/keep.txt" {
		t.Errorf("Expected only a/keep.txt, got %v", keys)
	}
}

func TestListByPrefix(t *testing.T) {
	s := newTestStore(t)

	mustPut(t, s, "documents/a.pdf", "a")
	mustPut(t, s, "documents/sub/b.pdf", "b")
	mustPut(t, s, "chunks/a.pdf/0.txt", "chunk")

	keys, err := s.List(context.Background(), "documents/")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("Expected 2 keys, got %v", keys)
	}
	if keys[0] != "documents/a.pdf" || keys[1] != "documents/sub/b.pdf" {
		t.Errorf("Expected sorted document keys, got %v", keys)
	}
}

func TestListEmptyPrefix(t *testing.T) {
	s := newTestStore(t)

	mustPut(t, s, "x.txt", "x")
	mustPut(t, s, "y/z.txt", "z")

	keys, err := s.List(context.Background(), "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("Expected all keys with empty prefix, got %v", keys)
	}
}

func TestKeyTraversalRejected(t *testing.T) {
	s := newTestStore(t)

	for _, key := range []string{"../escape.txt", "a/../../escape.txt", "/etc/passwd"} {
		t.Run(key, func(t *testing.T) {
			err := s.Put(context.Background(), key, strings.NewReader("x"))
			if !errors.Is(err, domain.ErrPermissionDenied) {
				t.Errorf("Expected ErrPermissionDenied for %q, got %v", key, err)
			}
		})
	}
}

func TestEmptyKeyRejected(t *testing.T) {
	s := newTestStore(t)

	if err := s.Put(context.Background(), "", strings.NewReader("x")); err == nil {
		t.Error("Expected error for empty key")
	}
}

func TestCancelledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Put(ctx, "doc.txt", strings.NewReader("x")); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
