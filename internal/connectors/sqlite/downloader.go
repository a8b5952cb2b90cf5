package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/driftline/ingest/internal/core/domain"
	"github.com/driftline/ingest/internal/core/ports/driven"
	"github.com/driftline/ingest/internal/dataprep"
)

// Ensure Downloader implements the interface.
var _ driven.Downloader = (*Downloader)(nil)

// Downloader materializes one table row as a text file: the row's non-ID
// column values, flattened and newline-joined.
type Downloader struct {
	config      *SourceConfig
	downloadDir string
}

// NewDownloader creates a sqlite downloader writing under downloadDir.
func NewDownloader(cfg *SourceConfig, downloadDir string) *Downloader {
	return &Downloader{config: cfg, downloadDir: downloadDir}
}

// Type returns the connector type identifier.
func (d *Downloader) Type() string {
	return ConnectorType
}

// Run fetches the row named by the record locator and writes its joined
// values to the download root.
func (d *Downloader) Run(ctx context.Context, fd domain.FileData) ([]driven.DownloadResponse, error) {
	rowID, ok := fd.Metadata.RecordLocator["row_id"].(string)
	if !ok || rowID == "" {
		return nil, fmt.Errorf("%w: record locator for %q has no row_id", domain.ErrInvalidInput, fd.Identifier)
	}

	db, err := open(d.config.Path)
	if err != nil {
		return nil, domain.NewSourceConnectionError(ConnectorType, err)
	}
	defer db.Close()

	record, err := d.fetchRow(ctx, db, rowID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.ItemNotFoundError{Identifier: fd.Identifier}
		}
		return nil, domain.NewSourceConnectionError(ConnectorType, err)
	}

	// The ID column names the document; it is not part of its content.
	delete(record, d.config.IDColumn)
	content := dataprep.FlattenedValues(record)

	downloadPath := driven.DownloadPath(d.downloadDir, fd)
	if err := os.MkdirAll(filepath.Dir(downloadPath), 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(downloadPath, []byte(content), 0o644); err != nil {
		return nil, err
	}

	fd.LocalDownloadPath = downloadPath
	return []driven.DownloadResponse{{FileData: fd, Path: downloadPath}}, nil
}

// fetchRow reads one row into a column-keyed map.
func (d *Downloader) fetchRow(ctx context.Context, db *sql.DB, rowID string) (map[string]any, error) {
	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = ?", d.config.Table, d.config.IDColumn) //nolint:gosec // identifiers validated at config parse
	rows, err := db.QueryContext(ctx, query, rowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, sql.ErrNoRows
	}

	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}

	record := make(map[string]any, len(columns))
	for i, col := range columns {
		record[col] = formatValue(values[i])
	}
	return record, nil
}
