package cliapp

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cordx56/autosave/internal/dylibshim"
	"github.com/cordx56/autosave/internal/fileutil"
	"github.com/cordx56/autosave/internal/worktree"
)

// extractPTYFlag pulls a leading "--pty" or "--pty=<mode>" off args, since
// run disables normal cobra flag parsing to hand the rest of the command
// line through to the child process untouched.
func extractPTYFlag(args []string) (rest []string, mode string) {
	if len(args) == 0 || !strings.HasPrefix(args[0], "--pty") {
		return args, ""
	}
	mode = "always"
	if v, ok := strings.CutPrefix(args[0], "--pty="); ok {
		mode = v
	}
	return args[1:], mode
}

var runCmd = &cobra.Command{
	Use:                "run <branch> [cmd args...]",
	Short:              "Enter a throwaway worktree on branch and run a command inside it",
	Args:               cobra.MinimumNArgs(1),
	DisableFlagParsing: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		args, ptyMode := extractPTYFlag(args)
		branch := args[0]
		command := args[1:]

		dir, err := os.Getwd()
		if err != nil {
			return err
		}
		repoRoot := findGitRoot(dir)
		if repoRoot == "" {
			return fmt.Errorf("not inside a git repository")
		}

		client, err := ensureDaemon(cmd.Context())
		if err != nil {
			return err
		}

		cacheDir, err := fileutil.CacheDir()
		if err != nil {
			return err
		}
		preloadPath, err := dylibshim.EnsureExtracted(cacheDir)
		if err != nil {
			return err
		}

		code, err := worktree.Run(cmd.Context(), worktree.Session{
			RepoRoot:    repoRoot,
			Branch:      branch,
			Command:     command,
			PreloadPath: preloadPath,
			CacheDir:    cacheDir,
			Client:      client,
			PTY:         ptyMode,
		})
		if err != nil {
			return err
		}
		lastExitCode = code
		return nil
	},
}
