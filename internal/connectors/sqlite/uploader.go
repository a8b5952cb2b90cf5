package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/driftline/ingest/internal/core/domain"
	"github.com/driftline/ingest/internal/core/ports/driven"
	"github.com/driftline/ingest/internal/dataprep"
	"github.com/driftline/ingest/internal/logger"
)

// Ensure UploadStager implements the interface.
var _ driven.UploadStager = (*UploadStager)(nil)

// UploadStager conforms element records to the sqlite destination schema:
// every record gets a stable ID, timestamps are canonicalized to the wire
// format, and nested structures are flattened to strings so each record fits
// scalar columns.
type UploadStager struct{}

// NewUploadStager creates the sqlite stager.
func NewUploadStager() *UploadStager {
	return &UploadStager{}
}

// Run conforms each record and writes the staged file.
func (s *UploadStager) Run(elementsPath string, _ domain.FileData, outputDir, outputFilename string) (string, error) {
	records, err := dataprep.ReadElements(elementsPath)
	if err != nil {
		return "", err
	}

	for idx, rec := range records {
		conformRecord(rec, outputFilename, idx)
	}

	outputPath := filepath.Join(outputDir, outputFilename+".json")
	if err := dataprep.WriteElements(outputPath, records); err != nil {
		return "", err
	}
	return outputPath, nil
}

// conformRecord reshapes one element record in place. IDs are keyed on the
// staged artifact name so records from sibling artifacts of one document
// never collide on the primary key.
func conformRecord(rec map[string]any, name string, idx int) {
	if _, ok := rec["id"]; !ok {
		rec["id"] = dataprep.ElementID(name, idx)
	}
	dataprep.CanonicalizeRecordTimes(rec)
	// Nested values become JSON strings so every column is scalar.
	for key, val := range rec {
		switch val.(type) {
		case map[string]any, []any:
			encoded, err := json.Marshal(val)
			if err != nil {
				continue
			}
			rec[key] = string(encoded)
		}
	}
}

// Ensure Uploader implements the interface.
var _ driven.Uploader = (*Uploader)(nil)

// Uploader inserts staged records into a table in per-batch transactions.
type Uploader struct {
	config *DestinationConfig
}

// NewUploader creates a sqlite uploader.
func NewUploader(cfg *DestinationConfig) *Uploader {
	return &Uploader{config: cfg}
}

// Type returns the connector type identifier.
func (u *Uploader) Type() string {
	return ConnectorType
}

// Precheck verifies the database opens and the destination table exists or
// can be created.
func (u *Uploader) Precheck(ctx context.Context) error {
	db, err := open(u.config.Path)
	if err != nil {
		return domain.NewDestinationConnectionError(ConnectorType, err)
	}
	defer db.Close()

	if err := u.ensureTable(ctx, db); err != nil {
		return domain.NewDestinationConnectionError(ConnectorType, err)
	}
	return nil
}

func (u *Uploader) ensureTable(ctx context.Context, db *sql.DB) error {
	query := fmt.Sprintf( //nolint:gosec // identifiers validated at config parse
		"CREATE TABLE IF NOT EXISTS %s (id TEXT PRIMARY KEY, element TEXT NOT NULL)", u.config.Table)
	_, err := db.ExecContext(ctx, query)
	return err
}

// Run writes the staged records in batches of the configured size. A failed
// batch rolls back only itself; batches already committed stay committed.
func (u *Uploader) Run(ctx context.Context, stagedPath string, fd domain.FileData) error {
	records, err := dataprep.ReadElements(stagedPath)
	if err != nil {
		return err
	}

	db, err := open(u.config.Path)
	if err != nil {
		return domain.NewDestinationConnectionError(ConnectorType, err)
	}
	defer db.Close()

	if err := u.ensureTable(ctx, db); err != nil {
		return domain.NewDestinationConnectionError(ConnectorType, err)
	}

	batches := dataprep.Batches(records, u.config.BatchSize)
	logger.Info("sqlite uploader writing %d records for %s in %d batches",
		len(records), fd.Identifier, len(batches))

	insert := fmt.Sprintf("INSERT INTO %s (id, element) VALUES (?, ?)", u.config.Table) //nolint:gosec // identifiers validated at config parse
	for _, batch := range batches {
		if err := u.writeBatch(ctx, db, insert, batch); err != nil {
			return &domain.WriteError{
				ConnectorType: ConnectorType,
				RecordIDs:     dataprep.RecordIDs(batch),
				Err:           err,
			}
		}
	}
	return nil
}

func (u *Uploader) writeBatch(ctx context.Context, db *sql.DB, insert string, batch []map[string]any) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	ids := dataprep.RecordIDs(batch)
	for i, rec := range batch {
		encoded, err := json.Marshal(rec)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("encode record: %w", err)
		}
		if _, err := tx.ExecContext(ctx, insert, ids[i], string(encoded)); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
