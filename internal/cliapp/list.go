package cliapp

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print watched repository paths, one per line",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := ensureDaemon(cmd.Context())
		if err != nil {
			return err
		}
		paths, err := client.ListWatched(cmd.Context())
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Println(p)
		}
		return nil
	},
}
