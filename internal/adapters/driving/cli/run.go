package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftline/ingest/internal/config"
	"github.com/driftline/ingest/internal/pipeline"
	"github.com/driftline/ingest/internal/registry"
)

var runWorkflowPath string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline described by a workflow file",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runWorkflowPath, "workflow", "w", "workflow.toml", "path to the workflow file")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	wf, err := config.Load(runWorkflowPath)
	if err != nil {
		return err
	}

	p, err := buildPipeline(wf)
	if err != nil {
		return err
	}

	result, err := p.Run(cmd.Context())
	if result != nil {
		for _, itemErr := range result.ItemErrors {
			cmd.PrintErrf("item error: %v\n", itemErr)
		}
		cmd.Printf("Processed %d documents (%d item errors).\n",
			len(result.Processed), len(result.ItemErrors))
	}
	if err != nil {
		return fmt.Errorf("pipeline run failed: %w", err)
	}
	return nil
}

// buildPipeline resolves the workflow's connector types through the registry
// and assembles the pipeline. Unknown types and invalid connector configs
// surface here, before any I/O.
func buildPipeline(wf *config.Workflow) (*pipeline.Pipeline, error) {
	src := wf.SourceSpec()
	sourceEntry, err := registry.Source(src.Type)
	if err != nil {
		return nil, err
	}

	indexer, err := sourceEntry.NewIndexer(src)
	if err != nil {
		return nil, err
	}
	downloader, err := sourceEntry.NewDownloader(src, wf.Pipeline.DownloadDir)
	if err != nil {
		return nil, err
	}

	opts := []pipeline.Option{}
	if wf.Pipeline.Workers > 0 {
		opts = append(opts, pipeline.WithWorkers(wf.Pipeline.Workers))
	}

	if wf.Destination != nil {
		dst := wf.DestinationSpec()
		destEntry, err := registry.Destination(dst.Type)
		if err != nil {
			return nil, err
		}
		stager, err := destEntry.NewUploadStager(dst)
		if err != nil {
			return nil, err
		}
		uploader, err := destEntry.NewUploader(dst)
		if err != nil {
			return nil, err
		}
		opts = append(opts, pipeline.WithDestination(stager, uploader))
	}

	return pipeline.New(indexer, downloader, wf.Pipeline.WorkDir, opts...)
}
