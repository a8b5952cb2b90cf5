// Package redis implements the Redis destination connector. Staged element
// records are written as JSON strings under {prefix}:{element id}, batched
// through pipelined SETs.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/driftline/ingest/internal/core/domain"
	"github.com/driftline/ingest/internal/core/ports/driven"
	"github.com/driftline/ingest/internal/dataprep"
	"github.com/driftline/ingest/internal/logger"
)

// ConnectorType identifies the Redis connector.
const ConnectorType = "redis"

// DefaultBatchSize is the number of records per pipelined write.
const DefaultBatchSize = 100

// DefaultKeyPrefix namespaces element keys.
const DefaultKeyPrefix = "elements"

// DestinationConfig holds Redis destination configuration.
type DestinationConfig struct {
	// Addr is the host:port of the Redis server.
	Addr string
	// Password authenticates the connection, if set.
	Password string
	// DB selects the logical database.
	DB int
	// KeyPrefix namespaces element keys.
	KeyPrefix string
	// BatchSize is the number of records per pipelined write.
	BatchSize int
}

// ParseDestinationConfig extracts and validates configuration from a Destination.
func ParseDestinationConfig(dst domain.Destination) (*DestinationConfig, error) {
	cfg := &DestinationConfig{
		Addr:      dst.Config["addr"],
		Password:  dst.Config["password"],
		KeyPrefix: dst.Config["key_prefix"],
		BatchSize: DefaultBatchSize,
	}
	if cfg.Addr == "" {
		return nil, fmt.Errorf("%w: redis destination requires \"addr\"", domain.ErrInvalidConfig)
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}
	if val := dst.Config["db"]; val != "" {
		db, err := strconv.Atoi(val)
		if err != nil || db < 0 {
			return nil, fmt.Errorf("%w: redis \"db\" must be a non-negative integer", domain.ErrInvalidConfig)
		}
		cfg.DB = db
	}
	if val := dst.Config["batch_size"]; val != "" {
		n, err := strconv.Atoi(val)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: redis \"batch_size\" must be a positive integer", domain.ErrInvalidConfig)
		}
		cfg.BatchSize = n
	}
	return cfg, nil
}

// Ensure UploadStager implements the interface.
var _ driven.UploadStager = (*UploadStager)(nil)

// UploadStager conforms element records for Redis: every record gets a stable
// ID to key on, and timestamps are canonicalized to the wire format. Nested
// structures stay nested; records are stored as JSON.
type UploadStager struct{}

// NewUploadStager creates the Redis stager.
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
		if _, ok := rec["id"]; !ok {
			// Keyed on the staged name so sibling artifacts of one
			// document never overwrite each other's keys.
			rec["id"] = dataprep.ElementID(outputFilename, idx)
		}
		dataprep.CanonicalizeRecordTimes(rec)
	}

	outputPath := filepath.Join(outputDir, outputFilename+".json")
	if err := dataprep.WriteElements(outputPath, records); err != nil {
		return "", err
	}
	return outputPath, nil
}

// Ensure Uploader implements the interface.
var _ driven.Uploader = (*Uploader)(nil)

// Uploader SETs staged records through pipelined batches. SET is an upsert,
// so re-running an upload of the same staged file is idempotent.
type Uploader struct {
	config *DestinationConfig
}

// NewUploader creates a Redis uploader.
func NewUploader(cfg *DestinationConfig) *Uploader {
	return &Uploader{config: cfg}
}

// client builds a connection for one operation. One client per worker; the
// handle is owned by the caller and closed after use.
func (u *Uploader) client() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     u.config.Addr,
		Password: u.config.Password,
		DB:       u.config.DB,
	})
}

// Type returns the connector type identifier.
func (u *Uploader) Type() string {
	return ConnectorType
}

// Precheck verifies the server answers a PING.
func (u *Uploader) Precheck(ctx context.Context) error {
	client := u.client()
	defer client.Close()

	if err := client.Ping(ctx).Err(); err != nil {
		return domain.NewDestinationConnectionError(ConnectorType, err)
	}
	return nil
}

// Run writes the staged records in pipelined batches. A failed batch is
// reported with its record IDs; earlier batches stay written.
func (u *Uploader) Run(ctx context.Context, stagedPath string, fd domain.FileData) error {
	records, err := dataprep.ReadElements(stagedPath)
	if err != nil {
		return err
	}

	client := u.client()
	defer client.Close()

	batches := dataprep.Batches(records, u.config.BatchSize)
	logger.Info("redis uploader writing %d records for %s in %d batches",
		len(records), fd.Identifier, len(batches))

	for _, batch := range batches {
		ids := dataprep.RecordIDs(batch)
		pipe := client.Pipeline()
		for i, rec := range batch {
			encoded, err := json.Marshal(rec)
			if err != nil {
				return &domain.WriteError{
					ConnectorType: ConnectorType,
					RecordIDs:     ids,
					Err:           fmt.Errorf("encode record %s: %w", ids[i], err),
				}
			}
			pipe.Set(ctx, u.config.KeyPrefix+":"+ids[i], encoded, 0)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return &domain.WriteError{
				ConnectorType: ConnectorType,
				RecordIDs:     ids,
				Err:           err,
			}
		}
	}
	return nil
}
