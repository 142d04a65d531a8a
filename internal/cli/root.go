// Package cli wires the foreman commands together.
package cli

import (
	"github.com/spf13/cobra"
)

var version = "0.1.0"

// NewRootCmd builds the top-level foreman command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "foreman",
		Short: "Dependency-aware work scheduling for a roster of workers",
		Long: `foreman runs a plan of interdependent work items across a roster of
specialized workers. Items are dispatched in bounded batches as their
dependencies complete, executed concurrently, and tracked until every
item reaches a terminal state.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newStatusCmd())

	return rootCmd
}

// Execute runs the root command and returns its error for main to report.
func Execute() error {
	return NewRootCmd().Execute()
}
