package cli

import (
	"github.com/spf13/cobra"

	"github.com/driftline/ingest/internal/config"
	"github.com/driftline/ingest/internal/registry"
)

var checkWorkflowPath string

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify a workflow's connectors can reach their systems",
	Long: `Resolves the workflow's connector types, validates their configuration,
and runs the source and destination prechecks without moving any documents.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVarP(&checkWorkflowPath, "workflow", "w", "workflow.toml", "path to the workflow file")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	wf, err := config.Load(checkWorkflowPath)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	src := wf.SourceSpec()
	sourceEntry, err := registry.Source(src.Type)
	if err != nil {
		return err
	}
	indexer, err := sourceEntry.NewIndexer(src)
	if err != nil {
		return err
	}
	if err := indexer.Precheck(ctx); err != nil {
		return err
	}
	cmd.Printf("source %q ok\n", src.Type)

	if wf.Destination != nil {
		dst := wf.DestinationSpec()
		destEntry, err := registry.Destination(dst.Type)
		if err != nil {
			return err
		}
		uploader, err := destEntry.NewUploader(dst)
		if err != nil {
			return err
		}
		if err := uploader.Precheck(ctx); err != nil {
			return err
		}
		cmd.Printf("destination %q ok\n", dst.Type)
	}
	return nil
}
