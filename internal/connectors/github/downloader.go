package github

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/driftline/ingest/internal/core/domain"
	"github.com/driftline/ingest/internal/core/ports/driven"
)

// Ensure Downloader implements the interface.
var _ driven.Downloader = (*Downloader)(nil)

// Downloader fetches a blob's raw content by the SHA recorded at index time,
// so the bytes match the indexed tree even if the branch has moved since.
type Downloader struct {
	config      *SourceConfig
	limiter     *RateLimiter
	downloadDir string
}

// NewDownloader creates a GitHub downloader writing under downloadDir.
func NewDownloader(cfg *SourceConfig, downloadDir string) *Downloader {
	return &Downloader{
		config:      cfg,
		limiter:     NewRateLimiter(),
		downloadDir: downloadDir,
	}
}

// Type returns the connector type identifier.
func (d *Downloader) Type() string {
	return ConnectorType
}

// Run fetches the blob named by the record locator to the download root.
func (d *Downloader) Run(ctx context.Context, fd domain.FileData) ([]driven.DownloadResponse, error) {
	sha, ok := fd.Metadata.RecordLocator["sha"].(string)
	if !ok || sha == "" {
		return nil, fmt.Errorf("%w: record locator for %q has no sha", domain.ErrInvalidInput, fd.Identifier)
	}

	client, err := newClient(d.config)
	if err != nil {
		return nil, domain.NewSourceConnectionError(ConnectorType, err)
	}

	if err := d.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	content, resp, err := client.Git.GetBlobRaw(ctx, d.config.Owner, d.config.Repo, sha)
	d.limiter.Update(resp)
	if err != nil {
		if isNotFound(resp) {
			return nil, &domain.ItemNotFoundError{Identifier: fd.Identifier}
		}
		return nil, domain.NewSourceConnectionError(ConnectorType, err)
	}

	downloadPath := driven.DownloadPath(d.downloadDir, fd)
	if err := os.MkdirAll(filepath.Dir(downloadPath), 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(downloadPath, content, 0o644); err != nil {
		return nil, err
	}

	fd.LocalDownloadPath = downloadPath
	fd.MergeAdditional(map[string]any{"filesize_bytes": int64(len(content))})

	return []driven.DownloadResponse{{FileData: fd, Path: downloadPath}}, nil
}
