package daemon_test

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/lumadocs/driveline/internal/daemon"
)

func TestPIDFile_WriteAndRead(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "test.pid")
	pidFile := daemon.NewPIDFile(pidPath)

	if err := pidFile.Write(); err != nil {
		t.Fatalf("Failed to write PID file: %v", err)
	}
	defer pidFile.Remove()

	pid, err := pidFile.Read()
	if err != nil {
		t.Fatalf("Failed to read PID file: %v", err)
	}
	if pid != os.Getpid() {
		t.Errorf("Expected PID %d, got %d", os.Getpid(), pid)
	}
}

func TestPIDFile_IsRunning(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "test.pid")
	pidFile := daemon.NewPIDFile(pidPath)

	if err := pidFile.Write(); err != nil {
		t.Fatalf("Failed to write PID file: %v", err)
	}
	defer pidFile.Remove()

	running, err := pidFile.IsRunning()
	if err != nil {
		t.Fatalf("Failed to check if running: %v", err)
	}
	if !running {
		t.Error("Expected process to be running")
	}
}

func TestPIDFile_WriteExisting(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "test.pid")
	pidFile := daemon.NewPIDFile(pidPath)

	if err := pidFile.Write(); err != nil {
		t.Fatalf("Failed to write PID file first time: %v", err)
	}
	defer pidFile.Remove()

	// The owning process is alive, a second write must fail
	if err := pidFile.Write(); err == nil {
		t.Error("Expected error when writing PID file for running process")
	}
}

func TestPIDFile_StalePIDCleanup(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "test.pid")
	pidFile := daemon.NewPIDFile(pidPath)

	// PID far beyond any live process
	stale := strconv.Itoa(1 << 30)
	if err := os.WriteFile(pidPath, []byte(stale+"\n"), 0644); err != nil {
		t.Fatalf("Failed to write stale PID: %v", err)
	}

	if err := pidFile.Write(); err != nil {
		t.Fatalf("Failed to write after stale PID: %v", err)
	}
	defer pidFile.Remove()

	pid, err := pidFile.Read()
	if err != nil {
		t.Fatalf("Failed to read PID: %v", err)
	}
	if pid != os.Getpid() {
		t.Errorf("Expected current PID %d, got %d", os.Getpid(), pid)
	}
}

func TestPIDFile_Remove(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "test.pid")
	pidFile := daemon.NewPIDFile(pidPath)

	if err := pidFile.Write(); err != nil {
		t.Fatalf("Failed to write PID file: %v", err)
	}
	if err := pidFile.Remove(); err != nil {
		t.Fatalf("Failed to remove PID file: %v", err)
	}
	if _, err := os.Stat(pidPath); !os.IsNotExist(err) {
		t.Error("PID file still exists after removal")
	}

	// Removing again should not error
	if err := pidFile.Remove(); err != nil {
		t.Errorf("Expected no error removing missing PID file, got: %v", err)
	}
}
