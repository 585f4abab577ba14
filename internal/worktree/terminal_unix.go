//go:build !windows

package worktree

import (
	"os"

	"golang.org/x/sys/unix"
)

// transferForeground puts the terminal's foreground process group onto
// the child's group, returning the original group to restore afterward.
// hasTerminal is false when stdin is not a terminal (e.g. under a test
// harness), in which case no transfer is attempted.
func transferForeground(childPID int) (originalPgrp int, hasTerminal bool) {
	pgrp, err := unix.IoctlGetInt(int(os.Stdin.Fd()), unix.TIOCGPGRP)
	if err != nil {
		return 0, false
	}
	if err := unix.IoctlSetPointerInt(int(os.Stdin.Fd()), unix.TIOCSPGRP, childPID); err != nil {
		return 0, false
	}
	return pgrp, true
}

func transferForegroundBack(originalPgrp int) {
	_ = unix.IoctlSetPointerInt(int(os.Stdin.Fd()), unix.TIOCSPGRP, originalPgrp)
}

// isTerminal reports whether stdin has a foreground process group, the
// same signal transferForeground relies on to decide whether a transfer
// is possible at all.
func isTerminal() bool {
	_, err := unix.IoctlGetInt(int(os.Stdin.Fd()), unix.TIOCGPGRP)
	return err == nil
}
