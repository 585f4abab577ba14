//go:build windows

package worktree

import "os/exec"

// preloadEnvVar has no Windows equivalent; run is documented as a
// Unix-only subcommand (LD_PRELOAD/DYLD_INSERT_LIBRARIES have no
// Windows analogue).
const preloadEnvVar = "AUTOSAVE_PRELOAD_UNSUPPORTED"

func setProcGroup(_ *exec.Cmd) {}
