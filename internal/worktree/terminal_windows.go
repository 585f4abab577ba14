//go:build windows

package worktree

func transferForeground(childPID int) (originalPgrp int, hasTerminal bool) {
	return 0, false
}

func transferForegroundBack(originalPgrp int) {}

func isTerminal() bool { return false }
