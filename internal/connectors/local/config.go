package local

import (
	"fmt"
	"strconv"

	"github.com/driftline/ingest/internal/core/domain"
)

// SourceConfig holds local source connector configuration.
type SourceConfig struct {
	// Path is the root directory to enumerate.
	Path string
	// Recursive controls whether subdirectories are walked.
	Recursive bool
}

// ParseSourceConfig extracts and validates configuration from a Source.
func ParseSourceConfig(src domain.Source) (*SourceConfig, error) {
	cfg := &SourceConfig{Recursive: true}

	cfg.Path = src.Config["path"]
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: local source requires \"path\"", domain.ErrInvalidConfig)
	}

	if val := src.Config["recursive"]; val != "" {
		recursive, err := strconv.ParseBool(val)
		if err != nil {
			return nil, fmt.Errorf("%w: local source \"recursive\" must be a boolean: %v", domain.ErrInvalidConfig, err)
		}
		cfg.Recursive = recursive
	}

	return cfg, nil
}

// DestinationConfig holds local destination connector configuration.
type DestinationConfig struct {
	// Path is the directory staged files are copied into.
	Path string
}

// ParseDestinationConfig extracts and validates configuration from a Destination.
func ParseDestinationConfig(dst domain.Destination) (*DestinationConfig, error) {
	path := dst.Config["path"]
	if path == "" {
		return nil, fmt.Errorf("%w: local destination requires \"path\"", domain.ErrInvalidConfig)
	}
	return &DestinationConfig{Path: path}, nil
}
