// Package cliapp implements the command dispatch surface: adding the
// current directory to the watch list by default, and the list, remove,
// run, and kill subcommands, all talking to the daemon over its local
// control socket (starting one if none is running).
package cliapp

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cordx56/autosave/internal/config"
	"github.com/cordx56/autosave/internal/daemonctl"
	"github.com/cordx56/autosave/internal/fileutil"
	"github.com/cordx56/autosave/internal/ipc"
)

// Version is set at build time.
var Version = "dev"

var (
	watchDelay  int
	watchBranch string
)

var rootCmd = &cobra.Command{
	Use:   "autosave",
	Short: "Continuously snapshot Git working trees onto autosave branches",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := os.Getwd()
		if err != nil {
			return err
		}
		client, err := ensureDaemon(cmd.Context())
		if err != nil {
			return err
		}
		cfg := config.Config{Branch: watchBranch}
		if cmd.Flags().Changed("delay") {
			cfg.Delay = watchDelay
		}
		return client.AddWatch(cmd.Context(), dir, cfg)
	},
}

// Execute runs the CLI, returning the exit code to propagate to the
// process. The root context carries no deadline: `run` may hand control
// to an interactive child for an arbitrary duration, so only the
// individual daemon requests (add/remove/list/kill) bound themselves.
func Execute() int {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fileutil.LogError("%s", err)
		return 1
	}
	return lastExitCode
}

// lastExitCode is set by the run subcommand to propagate a child's exit
// status through Execute's single integer return.
var lastExitCode int

func init() {
	rootCmd.Flags().IntVar(&watchDelay, "delay", 0, "debounce delay in seconds for this tier, > 0 (default: "+fmt.Sprint(config.DefaultDelaySeconds)+")")
	rootCmd.Flags().StringVar(&watchBranch, "branch", "", "tracking branch for this tier (default: "+config.DefaultBranch+")")
	rootCmd.AddCommand(listCmd, removeCmd, runCmd, killCmd, versionCmd)
}

// ensureDaemon returns a client for the running daemon, spawning one if
// the control socket is not currently answering.
func ensureDaemon(ctx context.Context) (*ipc.Client, error) {
	cacheDir, err := fileutil.CacheDir()
	if err != nil {
		return nil, err
	}
	sockPath := fileutil.SocketPath(cacheDir)
	client := ipc.NewClient(sockPath)
	if client.Ping(ctx) {
		return client, nil
	}

	if err := daemonctl.Spawn(cacheDir,
		sockPath,
		fileutil.LogPath(cacheDir),
		fileutil.PIDPath(cacheDir),
	); err != nil {
		return nil, fmt.Errorf("starting daemon: %w", err)
	}
	return client, nil
}
