package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Nova-Hunting/nova-tracer/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println(version.Full())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
