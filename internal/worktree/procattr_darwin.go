//go:build darwin

package worktree

import (
	"os/exec"
	"syscall"
)

const preloadEnvVar = "DYLD_INSERT_LIBRARIES"

// setProcGroup puts cmd in its own process group so the terminal's
// foreground group can be transferred to it independently of this
// process.
func setProcGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
