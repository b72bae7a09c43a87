//go:build !windows

package engine

import (
	"errors"
	"os"
	"syscall"
)

// processExists checks if a process with the given PID exists
func processExists(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// On Unix, FindProcess always succeeds, so signal 0 probes liveness
	err = process.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	// EPERM means the process exists but signalling it is not allowed
	if errors.Is(err, syscall.EPERM) {
		return true
	}
	return false
}
