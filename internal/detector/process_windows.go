//go:build windows

package detector

import "os"

// isProcessRunning reports whether a process with the given PID is alive.
// On Windows, os.FindProcess itself fails when the PID does not exist.
func isProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	_, err := os.FindProcess(pid)
	return err == nil
}
