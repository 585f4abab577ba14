package daemonctl

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/cordx56/autosave/internal/fileutil"
)

// errLockHeld is returned when another daemon instance already holds the
// single-instance lock.
var errLockHeld = errors.New("a daemon is already running for this cache directory")

// IsLockHeld reports whether err indicates the daemon lock is already held.
func IsLockHeld(err error) bool {
	return errors.Is(err, errLockHeld)
}

func lockFilePath(cacheDir string) string {
	return filepath.Join(cacheDir, "daemon.lock")
}

// AcquireDaemonLock attempts to acquire the exclusive daemon lock for
// cacheDir, guaranteeing at most one daemon process per cache directory.
// Returns an unlock function on success, or errLockHeld if another daemon
// already holds it.
func AcquireDaemonLock(cacheDir string) (unlock func(), err error) {
	if err := fileutil.EnsureDir(cacheDir); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	lockPath := lockFilePath(cacheDir)
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w", errLockHeld)
	}

	return func() {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		f.Close()
	}, nil
}
