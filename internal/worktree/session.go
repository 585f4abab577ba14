// Package worktree implements the run subcommand's session driver: it
// creates a throwaway worktree for a branch, registers it with the
// daemon, spawns the user's command inside it with the path-redirect
// preload active, manages its process group and controlling terminal,
// and tears the worktree down again on exit.
package worktree

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/cordx56/autosave/internal/config"
	"github.com/cordx56/autosave/internal/env"
	"github.com/cordx56/autosave/internal/fileutil"
	"github.com/cordx56/autosave/internal/git"
	"github.com/cordx56/autosave/internal/ipc"
)

// preloadVarName is the OS-appropriate environment variable the dynamic
// linker reads to inject the redirect shim.
const preloadVarName = preloadEnvVar

// Session describes one run-subcommand invocation.
type Session struct {
	RepoRoot    string
	Branch      string
	Command     []string
	PreloadPath string
	CacheDir    string
	Client      *ipc.Client
	// PTY selects whether the command attaches to a new pseudo-terminal
	// instead of this process's own stdio: "always", "never", or ""
	// (equivalent to "auto") to attach a pty only when stdin is not
	// already a terminal (scripted invocations, test harnesses) but the
	// command being run still expects one.
	PTY string
}

func (s Session) usePTY() bool {
	switch s.PTY {
	case "always":
		return true
	case "never":
		return false
	default:
		return !isTerminal()
	}
}

// Run creates the worktree, registers it, spawns the command, waits for
// it, then unregisters and prunes the worktree. It returns the exit code
// to propagate to the calling process (128+signal on signal death).
func Run(ctx context.Context, s Session) (int, error) {
	if len(s.Command) == 0 {
		shell := os.Getenv("SHELL")
		if shell == "" {
			shell = "/bin/sh"
		}
		s.Command = []string{shell}
	}

	worktreePath := fileutil.WorktreePath(s.CacheDir, s.RepoRoot, s.Branch)
	if err := fileutil.EnsureDir(filepath.Dir(worktreePath)); err != nil {
		return 1, err
	}

	repo := git.NewRepo(s.RepoRoot)
	gitDir, err := repo.AddWorktree(worktreePath, s.Branch)
	if err != nil {
		return 1, fmt.Errorf("worktree: creating worktree: %w", err)
	}

	if err := s.Client.AddWatch(ctx, worktreePath, config.Config{Worktree: s.Branch}); err != nil {
		return 1, fmt.Errorf("worktree: registering watch: %w", err)
	}
	defer func() {
		_ = s.Client.RemoveWatch(context.Background(), worktreePath)
		_ = repo.RemoveWorktree(worktreePath)
		_ = repo.PruneWorktrees()
	}()

	return spawn(s.RepoRoot, worktreePath, gitDir, s.PreloadPath, s.Command, s.usePTY())
}

func spawn(repoRoot, worktreePath, gitDir, preloadPath string, command []string, usePTY bool) (int, error) {
	cmd := exec.Command(command[0], command[1:]...)
	// Strip any redirect config and daemon-child marker this process
	// itself inherited, so a run invoked from inside another run's
	// shell points the shim at this worktree rather than an enclosing
	// one, and never mistakes itself for the daemon re-exec.
	baseEnv := env.FilterByPrefixes("REDIRECT_FROM=", "REDIRECT_TO=", "REDIRECT_SKIP_GITIGNORE=", "AUTOSAVE_DAEMON_CHILD=")
	cmd.Env = append(baseEnv,
		preloadVarName+"="+preloadPath,
		"REDIRECT_FROM="+repoRoot,
		"REDIRECT_TO="+worktreePath,
		"REDIRECT_SKIP_GITIGNORE=1",
		"GIT_DIR="+gitDir,
		"GIT_WORK_TREE="+worktreePath,
	)

	if usePTY {
		ptmx, err := spawnPTY(cmd)
		if err != nil {
			return 1, fmt.Errorf("worktree: starting command under pty: %w", err)
		}
		defer stopPTY(ptmx)
		return waitExit(cmd)
	}

	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	setProcGroup(cmd)

	// SIGTTOU would otherwise stop this (potentially background) process
	// when it tries to manipulate the terminal's foreground group below.
	signal.Ignore(syscall.SIGTTOU)

	if err := cmd.Start(); err != nil {
		return 1, fmt.Errorf("worktree: starting command: %w", err)
	}

	parentPgrp, hasTerminal := transferForeground(cmd.Process.Pid)
	if hasTerminal {
		defer transferForegroundBack(parentPgrp)
	}

	return waitExit(cmd)
}

func waitExit(cmd *exec.Cmd) (int, error) {
	err := cmd.Wait()
	if err == nil {
		return 0, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			if status.Signaled() {
				return 128 + int(status.Signal()), nil
			}
			return status.ExitStatus(), nil
		}
	}
	return 1, err
}
