package cliapp

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	removePath string
	removeAll  bool
)

var removeCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove a path from the watch list",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := ensureDaemon(cmd.Context())
		if err != nil {
			return err
		}

		if removeAll {
			paths, err := client.ListWatched(cmd.Context())
			if err != nil {
				return err
			}
			for _, p := range paths {
				if err := client.RemoveWatch(cmd.Context(), p); err != nil {
					return fmt.Errorf("removing %s: %w", p, err)
				}
			}
			return nil
		}

		path := removePath
		if path == "" {
			dir, err := os.Getwd()
			if err != nil {
				return err
			}
			path = dir
		}
		return client.RemoveWatch(cmd.Context(), path)
	},
}

func init() {
	removeCmd.Flags().StringVar(&removePath, "path", "", "path to remove (default: current directory)")
	removeCmd.Flags().BoolVar(&removeAll, "all", false, "remove every watched path")
}
