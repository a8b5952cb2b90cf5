// Package config loads the TOML workflow file describing one ingestion run:
// the source, the optional destination, and the pipeline settings. The whole
// file is validated eagerly at load, before any connector touches the
// network.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/driftline/ingest/internal/core/domain"
)

// Endpoint is the TOML shape of a source or destination table.
type Endpoint struct {
	ID     string            `toml:"id"`
	Type   string            `toml:"type"`
	Config map[string]string `toml:"config"`
}

// PipelineSettings is the TOML shape of the pipeline table.
type PipelineSettings struct {
	// DownloadDir is where downloaded content lands. Defaults to
	// {work_dir}/download.
	DownloadDir string `toml:"download_dir"`

	// WorkDir holds partitioned, staged and checkpoint files. Defaults
	// to ./ingest-work.
	WorkDir string `toml:"work_dir"`

	// Workers is the download fan-out. Defaults to the pipeline's own
	// default when zero.
	Workers int `toml:"workers"`
}

// Workflow is one run's full configuration.
type Workflow struct {
	Source      Endpoint         `toml:"source"`
	Destination *Endpoint        `toml:"destination"`
	Pipeline    PipelineSettings `toml:"pipeline"`
}

// Load reads and validates a workflow file.
func Load(path string) (*Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow file: %w", err)
	}

	var wf Workflow
	if err := toml.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("%w: parse workflow file: %v", domain.ErrInvalidConfig, err)
	}
	if err := wf.validate(); err != nil {
		return nil, err
	}
	wf.applyDefaults()
	return &wf, nil
}

func (w *Workflow) validate() error {
	if err := w.SourceSpec().Validate(); err != nil {
		return err
	}
	if w.Destination != nil {
		if err := w.DestinationSpec().Validate(); err != nil {
			return err
		}
	}
	if w.Pipeline.Workers < 0 {
		return fmt.Errorf("%w: pipeline workers must not be negative", domain.ErrInvalidConfig)
	}
	return nil
}

func (w *Workflow) applyDefaults() {
	if w.Pipeline.WorkDir == "" {
		w.Pipeline.WorkDir = "ingest-work"
	}
	if w.Pipeline.DownloadDir == "" {
		w.Pipeline.DownloadDir = filepath.Join(w.Pipeline.WorkDir, "download")
	}
}

// SourceSpec returns the source as a domain descriptor.
func (w *Workflow) SourceSpec() domain.Source {
	return domain.Source{
		ID:     w.Source.ID,
		Type:   w.Source.Type,
		Config: w.Source.Config,
	}
}

// DestinationSpec returns the destination as a domain descriptor. Only valid
// when a destination table is present.
func (w *Workflow) DestinationSpec() domain.Destination {
	return domain.Destination{
		ID:     w.Destination.ID,
		Type:   w.Destination.Type,
		Config: w.Destination.Config,
	}
}
