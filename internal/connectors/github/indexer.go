package github

import (
	"context"
	"net/http"
	"strconv"
	"time"

	gh "github.com/google/go-github/v80/github"

	"github.com/driftline/ingest/internal/core/domain"
	"github.com/driftline/ingest/internal/core/ports/driven"
	"github.com/driftline/ingest/internal/logger"
)

// ConnectorType identifies the GitHub connector.
const ConnectorType = "github"

// Ensure Indexer implements the interface.
var _ driven.Indexer = (*Indexer)(nil)

// Indexer enumerates the blobs of a repository tree at a branch.
type Indexer struct {
	config  *SourceConfig
	limiter *RateLimiter
}

// NewIndexer creates a GitHub indexer.
func NewIndexer(cfg *SourceConfig) *Indexer {
	return &Indexer{
		config:  cfg,
		limiter: NewRateLimiter(),
	}
}

// Type returns the connector type identifier.
func (i *Indexer) Type() string {
	return ConnectorType
}

// Precheck verifies the repository is reachable with the configured
// credentials.
func (i *Indexer) Precheck(ctx context.Context) error {
	client, err := newClient(i.config)
	if err != nil {
		return domain.NewSourceConnectionError(ConnectorType, err)
	}
	if err := i.limiter.Wait(ctx); err != nil {
		return err
	}
	_, resp, err := client.Repositories.Get(ctx, i.config.Owner, i.config.Repo)
	i.limiter.Update(resp)
	if err != nil {
		return domain.NewSourceConnectionError(ConnectorType, err)
	}
	return nil
}

// Run walks the repository tree recursively and yields one FileData per
// blob, in the order the tree API reports, which is stable for a fixed
// commit.
func (i *Indexer) Run(ctx context.Context) (<-chan domain.FileData, <-chan error) {
	docs := make(chan domain.FileData)
	errs := make(chan error, 1)

	go func() {
		defer close(docs)
		defer close(errs)

		client, err := newClient(i.config)
		if err != nil {
			errs <- domain.NewSourceConnectionError(ConnectorType, err)
			return
		}

		branch, err := i.resolveBranch(ctx, client)
		if err != nil {
			errs <- err
			return
		}

		if err := i.limiter.Wait(ctx); err != nil {
			return
		}
		ref, resp, err := client.Git.GetRef(ctx, i.config.Owner, i.config.Repo, "heads/"+branch)
		i.limiter.Update(resp)
		if err != nil {
			errs <- domain.NewSourceConnectionError(ConnectorType, err)
			return
		}

		if err := i.limiter.Wait(ctx); err != nil {
			return
		}
		tree, resp, err := client.Git.GetTree(ctx, i.config.Owner, i.config.Repo, ref.GetObject().GetSHA(), true)
		i.limiter.Update(resp)
		if err != nil {
			errs <- domain.NewSourceConnectionError(ConnectorType, err)
			return
		}
		if tree.GetTruncated() {
			logger.Warn("github tree for %s@%s truncated by the API; enumeration is incomplete",
				i.config.RepoPath(), branch)
		}

		for _, entry := range tree.Entries {
			if entry.GetType() != "blob" {
				continue
			}
			select {
			case <-ctx.Done():
				return
			case docs <- i.fileData(entry, branch):
			}
		}
	}()

	return docs, errs
}

// resolveBranch returns the configured branch, or the repository's default
// branch when none is configured.
func (i *Indexer) resolveBranch(ctx context.Context, client *gh.Client) (string, error) {
	if i.config.Branch != "" {
		return i.config.Branch, nil
	}
	if err := i.limiter.Wait(ctx); err != nil {
		return "", err
	}
	repo, resp, err := client.Repositories.Get(ctx, i.config.Owner, i.config.Repo)
	i.limiter.Update(resp)
	if err != nil {
		return "", domain.NewSourceConnectionError(ConnectorType, err)
	}
	return repo.GetDefaultBranch(), nil
}

func (i *Indexer) fileData(entry *gh.TreeEntry, branch string) domain.FileData {
	path := entry.GetPath()
	return domain.FileData{
		Identifier:    entry.GetSHA(),
		ConnectorType: ConnectorType,
		SourceIdentifiers: domain.SourceIdentifiers{
			Fullpath: path,
			Filename: basename(path),
			RelPath:  path,
		},
		Metadata: domain.SourceMetadata{
			DateProcessed: strconv.FormatInt(time.Now().Unix(), 10),
			Version:       entry.GetSHA(),
			RecordLocator: map[string]any{
				"repo_path": i.config.RepoPath(),
				"file_path": path,
				"branch":    branch,
				"sha":       entry.GetSHA(),
			},
			URL: entry.GetURL(),
		},
		AdditionalMetadata: map[string]any{
			"mode": entry.GetMode(),
			"type": entry.GetType(),
			"size": entry.GetSize(),
		},
	}
}

func basename(path string) string {
	for idx := len(path) - 1; idx >= 0; idx-- {
		if path[idx] == '/' {
			return path[idx+1:]
		}
	}
	return path
}

// isNotFound reports whether an API error is a 404.
func isNotFound(resp *gh.Response) bool {
	return resp != nil && resp.StatusCode == http.StatusNotFound
}
