package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/driftline/ingest/internal/core/domain"
	"github.com/driftline/ingest/internal/core/ports/driven"
)

// Ensure Downloader implements the interface.
var _ driven.Downloader = (*Downloader)(nil)

// Downloader copies a file from its source location into the download root.
type Downloader struct {
	downloadDir string
}

// NewDownloader creates a local downloader writing under downloadDir.
func NewDownloader(downloadDir string) *Downloader {
	return &Downloader{downloadDir: downloadDir}
}

// Type returns the connector type identifier.
func (d *Downloader) Type() string {
	return ConnectorType
}

// Run copies the file named by the record locator to the download root.
func (d *Downloader) Run(ctx context.Context, fd domain.FileData) ([]driven.DownloadResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sourcePath, ok := fd.Metadata.RecordLocator["path"].(string)
	if !ok || sourcePath == "" {
		return nil, fmt.Errorf("%w: record locator for %q has no path", domain.ErrInvalidInput, fd.Identifier)
	}

	src, err := os.Open(sourcePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &domain.ItemNotFoundError{Identifier: fd.Identifier}
		}
		return nil, domain.NewSourceConnectionError(ConnectorType, err)
	}
	defer src.Close()

	downloadPath := driven.DownloadPath(d.downloadDir, fd)
	if err := os.MkdirAll(filepath.Dir(downloadPath), 0o755); err != nil {
		return nil, err
	}
	dst, err := os.Create(downloadPath)
	if err != nil {
		return nil, err
	}
	written, err := io.Copy(dst, src)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, fmt.Errorf("copy %s: %w", sourcePath, err)
	}

	fd.LocalDownloadPath = downloadPath
	fd.MergeAdditional(map[string]any{"filesize_bytes": written})

	return []driven.DownloadResponse{{FileData: fd, Path: downloadPath}}, nil
}
