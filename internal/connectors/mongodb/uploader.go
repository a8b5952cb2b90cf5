package mongodb

import (
	"context"
	"path/filepath"

	"github.com/driftline/ingest/internal/core/domain"
	"github.com/driftline/ingest/internal/core/ports/driven"
	"github.com/driftline/ingest/internal/dataprep"
	"github.com/driftline/ingest/internal/logger"
)

// Ensure UploadStager implements the interface.
var _ driven.UploadStager = (*UploadStager)(nil)

// UploadStager passes element records through unchanged; MongoDB stores the
// partitioned shape natively.
type UploadStager struct{}

// NewUploadStager creates the MongoDB stager.
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

// Uploader insert-many's staged records into a collection, one call per
// batch.
type Uploader struct {
	config *DestinationConfig
}

// NewUploader creates a MongoDB uploader.
func NewUploader(cfg *DestinationConfig) *Uploader {
	return &Uploader{config: cfg}
}

// Type returns the connector type identifier.
func (u *Uploader) Type() string {
	return ConnectorType
}

// Precheck validates the connection with a ping.
func (u *Uploader) Precheck(ctx context.Context) error {
	client, closeClient, err := u.config.connect(ctx)
	if err != nil {
		return domain.NewDestinationConnectionError(ConnectorType, err)
	}
	defer closeClient()

	if err := client.Ping(ctx, nil); err != nil {
		return domain.NewDestinationConnectionError(ConnectorType, err)
	}
	return nil
}

// Run writes the staged records in batches. A rejected batch is reported
// with its record IDs; batches already inserted stay inserted.
func (u *Uploader) Run(ctx context.Context, stagedPath string, fd domain.FileData) error {
	records, err := dataprep.ReadElements(stagedPath)
	if err != nil {
		return err
	}

	client, closeClient, err := u.config.connect(ctx)
	if err != nil {
		return domain.NewDestinationConnectionError(ConnectorType, err)
	}
	defer closeClient()

	collection := client.Database(u.config.Database).Collection(u.config.Collection)
	batches := dataprep.Batches(records, u.config.BatchSize)
	logger.Info("mongodb uploader writing %d records for %s to %s.%s in %d batches",
		len(records), fd.Identifier, u.config.Database, u.config.Collection, len(batches))

	for _, batch := range batches {
		docs := make([]any, len(batch))
		for i, rec := range batch {
			docs[i] = rec
		}
		if _, err := collection.InsertMany(ctx, docs); err != nil {
			return &domain.WriteError{
				ConnectorType: ConnectorType,
				RecordIDs:     dataprep.RecordIDs(batch),
				Err:           err,
			}
		}
	}
	return nil
}
