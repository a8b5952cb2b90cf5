package github

import (
	"fmt"
	"strings"

	"github.com/driftline/ingest/internal/core/domain"
)

// SourceConfig holds GitHub source connector configuration.
type SourceConfig struct {
	// Owner is the repository owner (user or organization).
	Owner string
	// Repo is the repository name.
	Repo string
	// Branch is the branch to index. Empty means the repository's default
	// branch.
	Branch string
	// Token is a personal access token. Empty works for public
	// repositories at anonymous rate limits.
	Token string
	// BaseURL overrides the API endpoint, for GitHub Enterprise or tests.
	BaseURL string
}

// ParseSourceConfig extracts and validates configuration from a Source.
// The repository is configured as "owner/name".
func ParseSourceConfig(src domain.Source) (*SourceConfig, error) {
	repoPath := src.Config["repository"]
	if repoPath == "" {
		return nil, fmt.Errorf("%w: github source requires \"repository\" as owner/name", domain.ErrInvalidConfig)
	}
	parts := strings.Split(strings.Trim(repoPath, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("%w: github \"repository\" %q is not owner/name", domain.ErrInvalidConfig, repoPath)
	}

	return &SourceConfig{
		Owner:   parts[0],
		Repo:    parts[1],
		Branch:  src.Config["branch"],
		Token:   src.Config["token"],
		BaseURL: src.Config["base_url"],
	}, nil
}

// RepoPath returns the owner/name form.
func (c *SourceConfig) RepoPath() string {
	return c.Owner + "/" + c.Repo
}
