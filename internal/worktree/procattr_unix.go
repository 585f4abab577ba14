//go:build !darwin && !windows

package worktree

import (
	"os/exec"
	"syscall"
)

const preloadEnvVar = "LD_PRELOAD"

// setProcGroup puts cmd in its own process group so the terminal's
// foreground group can be transferred to it independently of this
// process.
func setProcGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
