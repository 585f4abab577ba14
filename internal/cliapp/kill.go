package cliapp

import "github.com/spf13/cobra"

var killCmd = &cobra.Command{
	Use:   "kill",
	Short: "Ask the daemon to terminate",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := ensureDaemon(cmd.Context())
		if err != nil {
			return err
		}
		return client.Kill(cmd.Context())
	},
}
