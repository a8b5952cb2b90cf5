// Package cli implements the ingest command-line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/driftline/ingest/internal/connectors"
	"github.com/driftline/ingest/internal/logger"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Move documents between sources and destinations",
	Long: `ingest runs a document pipeline described by a workflow file:
a source connector enumerates and downloads documents, and an optional
destination connector stages and uploads them in batches.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.SetVerbose(verbose)
		connectors.RegisterAll()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
