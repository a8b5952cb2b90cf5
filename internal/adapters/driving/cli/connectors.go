package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/driftline/ingest/internal/registry"
)

var connectorsCmd = &cobra.Command{
	Use:   "connectors",
	Short: "List registered connector types",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("sources:      %s\n", strings.Join(registry.SourceTypes(), ", "))
		cmd.Printf("destinations: %s\n", strings.Join(registry.DestinationTypes(), ", "))
	},
}

func init() {
	rootCmd.AddCommand(connectorsCmd)
}
