package cliapp

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of autosave",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("autosave %s\n", Version)
	},
}
