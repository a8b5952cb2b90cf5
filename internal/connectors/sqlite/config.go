package sqlite

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/driftline/ingest/internal/core/domain"
)

// DefaultBatchSize is the number of records written per destination batch.
const DefaultBatchSize = 100

// identPattern restricts table and column names to plain identifiers, since
// they are interpolated into SQL.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SourceConfig holds sqlite source connector configuration.
type SourceConfig struct {
	// Path is the database file.
	Path string
	// Table is the table rows are read from.
	Table string
	// IDColumn is the primary-key column naming each document.
	IDColumn string
}

// ParseSourceConfig extracts and validates configuration from a Source.
func ParseSourceConfig(src domain.Source) (*SourceConfig, error) {
	cfg := &SourceConfig{
		Path:     src.Config["path"],
		Table:    src.Config["table"],
		IDColumn: src.Config["id_column"],
	}
	if cfg.IDColumn == "" {
		cfg.IDColumn = "id"
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: sqlite source requires \"path\"", domain.ErrInvalidConfig)
	}
	if cfg.Table == "" {
		return nil, fmt.Errorf("%w: sqlite source requires \"table\"", domain.ErrInvalidConfig)
	}
	if !identPattern.MatchString(cfg.Table) {
		return nil, fmt.Errorf("%w: sqlite table name %q is not a valid identifier", domain.ErrInvalidConfig, cfg.Table)
	}
	if !identPattern.MatchString(cfg.IDColumn) {
		return nil, fmt.Errorf("%w: sqlite id column %q is not a valid identifier", domain.ErrInvalidConfig, cfg.IDColumn)
	}
	return cfg, nil
}

// DestinationConfig holds sqlite destination connector configuration.
type DestinationConfig struct {
	// Path is the database file.
	Path string
	// Table is the table staged records are inserted into.
	Table string
	// BatchSize is the number of records per insert transaction.
	BatchSize int
}

// ParseDestinationConfig extracts and validates configuration from a Destination.
func ParseDestinationConfig(dst domain.Destination) (*DestinationConfig, error) {
	cfg := &DestinationConfig{
		Path:      dst.Config["path"],
		Table:     dst.Config["table"],
		BatchSize: DefaultBatchSize,
	}
	if cfg.Table == "" {
		cfg.Table = "elements"
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: sqlite destination requires \"path\"", domain.ErrInvalidConfig)
	}
	if !identPattern.MatchString(cfg.Table) {
		return nil, fmt.Errorf("%w: sqlite table name %q is not a valid identifier", domain.ErrInvalidConfig, cfg.Table)
	}
	if val := dst.Config["batch_size"]; val != "" {
		n, err := strconv.Atoi(val)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: sqlite \"batch_size\" must be a positive integer", domain.ErrInvalidConfig)
		}
		cfg.BatchSize = n
	}
	return cfg, nil
}
