//go:build windows

package worktree

import (
	"fmt"
	"os"
	"os/exec"
)

func spawnPTY(cmd *exec.Cmd) (*os.File, error) {
	return nil, fmt.Errorf("worktree: pseudo-terminal mode is not supported on windows")
}

func stopPTY(ptmx *os.File) {}
