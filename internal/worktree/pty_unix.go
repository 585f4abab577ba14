//go:build !windows

package worktree

import (
	"io"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/creack/pty"
)

// spawnPTY starts cmd attached to a new pseudo-terminal instead of this
// process's own stdio, and pipes bytes between the two until cmd exits.
// Used when stdin is not itself a terminal (run invoked from a script, a
// test harness, or another non-interactive pipeline) but the command
// being run still expects one, e.g. an editor or an interactive agent
// started inside the worktree.
func spawnPTY(cmd *exec.Cmd) (*os.File, error) {
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return nil, err
	}

	winch := make(chan os.Signal, 1)
	signal.Notify(winch, syscall.SIGWINCH)
	go func() {
		for range winch {
			_ = pty.InheritSize(os.Stdin, ptmx)
		}
	}()
	winch <- syscall.SIGWINCH // sync size on start

	go func() { _, _ = io.Copy(ptmx, os.Stdin) }()
	go func() { _, _ = io.Copy(os.Stdout, ptmx) }()

	return ptmx, nil
}

func stopPTY(ptmx *os.File) {
	_ = ptmx.Close()
}
