//go:build !windows

package detector

import (
	"os"
	"syscall"
)

// isProcessRunning reports whether a process with the given PID is alive,
// by sending the null signal per the standard Unix liveness check.
func isProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
