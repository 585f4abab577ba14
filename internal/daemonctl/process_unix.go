//go:build !windows

package daemonctl

import (
	"os"
	"syscall"
)

func findProcess(pid int) (*os.Process, error) {
	return os.FindProcess(pid)
}

// IsProcessRunning checks if a process with the given PID is running.
func IsProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := findProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}

// KillDaemon sends SIGTERM to the daemon process.
func KillDaemon(pid int) error {
	if pid <= 0 {
		return nil
	}
	process, err := findProcess(pid)
	if err != nil {
		return err
	}
	return process.Signal(syscall.SIGTERM)
}

// detachedProcAttr starts the daemon re-exec in a new session, detached
// from the launching terminal.
func detachedProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
