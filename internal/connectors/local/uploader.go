package local

import (
	"context"
	"os"
	"path/filepath"

	"github.com/driftline/ingest/internal/core/domain"
	"github.com/driftline/ingest/internal/core/ports/driven"
	"github.com/driftline/ingest/internal/dataprep"
	"github.com/driftline/ingest/internal/logger"
)

// Ensure UploadStager implements the interface.
var _ driven.UploadStager = (*UploadStager)(nil)

// UploadStager passes element records through unchanged. Local output keeps
// the partitioned shape.
type UploadStager struct{}

// NewUploadStager creates the pass-through stager.
func NewUploadStager() *UploadStager {
	return &UploadStager{}
}

// Run copies the element records to the staged output file.
func (s *UploadStager) Run(elementsPath string, _ domain.FileData, outputDir, outputFilename string) (string, error) {
	records, err := dataprep.ReadElements(elementsPath)
	if err != nil {
		return "", err
	}
	outputPath := filepath.Join(outputDir, outputFilename+".json")
	if err := dataprep.WriteElements(outputPath, records); err != nil {
		return "", err
	}
	return outputPath, nil
}

// Ensure Uploader implements the interface.
var _ driven.Uploader = (*Uploader)(nil)

// Uploader copies staged files into the destination directory.
type Uploader struct {
	config *DestinationConfig
}

// NewUploader creates a local uploader.
func NewUploader(cfg *DestinationConfig) *Uploader {
	return &Uploader{config: cfg}
}

// Type returns the connector type identifier.
func (u *Uploader) Type() string {
	return ConnectorType
}

// Precheck verifies the destination directory can be created and written.
func (u *Uploader) Precheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(u.config.Path, 0o755); err != nil {
		return domain.NewDestinationConnectionError(ConnectorType, err)
	}
	return nil
}

// Run places the staged file in the destination directory under its staged
// name. The staged name is unique per downloaded artifact, so sibling
// artifacts of one document land as separate files.
func (u *Uploader) Run(ctx context.Context, stagedPath string, _ domain.FileData) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := os.ReadFile(stagedPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(u.config.Path, 0o755); err != nil {
		return domain.NewDestinationConnectionError(ConnectorType, err)
	}
	target := filepath.Join(u.config.Path, filepath.Base(stagedPath))
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return domain.NewDestinationConnectionError(ConnectorType, err)
	}
	logger.Debug("local uploader wrote %s", target)
	return nil
}
