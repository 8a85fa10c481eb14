// Package cmd provides the command-line interface for arqsim.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "arqsim",
	Short: "arqsim simulates link admission with ARQ and ALOHA controllers.",
	Long: `arqsim runs scenarios where bridges and switches admit packets ` +
		`through a forwarding table, an ALOHA access controller and a ` +
		`sliding-window flow controller, and reports what was sent and ` +
		`what was dropped.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
