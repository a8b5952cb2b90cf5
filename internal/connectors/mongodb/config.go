package mongodb

import (
	"context"
	"fmt"
	"strconv"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/driftline/ingest/internal/core/domain"
)

// DefaultBatchSize is the number of records written per destination batch.
const DefaultBatchSize = 100

// defaultPort is the standard mongod port.
const defaultPort = 27017

// ConnectionConfig holds the settings shared by the MongoDB indexer,
// downloader and uploader.
type ConnectionConfig struct {
	// URI is the full connection string. When set, Host and Port are
	// ignored.
	URI string
	// Host is the mongod host to connect to when no URI is given.
	Host string
	// Port is the mongod port.
	Port int
	// Database is the database name.
	Database string
	// Collection is the collection name.
	Collection string

	// dial overrides client construction when set. Clients it returns are
	// owned by the injector and are not disconnected after use.
	dial func(ctx context.Context) (*mongo.Client, error)
}

// parseConnectionConfig validates the shared connection fields.
func parseConnectionConfig(raw map[string]string) (*ConnectionConfig, error) {
	cfg := &ConnectionConfig{
		URI:        raw["uri"],
		Host:       raw["host"],
		Port:       defaultPort,
		Database:   raw["database"],
		Collection: raw["collection"],
	}
	if val := raw["port"]; val != "" {
		port, err := strconv.Atoi(val)
		if err != nil || port < 1 {
			return nil, fmt.Errorf("%w: mongodb \"port\" must be a positive integer", domain.ErrInvalidConfig)
		}
		cfg.Port = port
	}
	if cfg.URI == "" && cfg.Host == "" {
		return nil, fmt.Errorf("%w: mongodb requires \"uri\" or \"host\"", domain.ErrInvalidConfig)
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("%w: mongodb requires \"database\"", domain.ErrInvalidConfig)
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("%w: mongodb requires \"collection\"", domain.ErrInvalidConfig)
	}
	return cfg, nil
}

// ParseSourceConfig extracts and validates configuration from a Source.
func ParseSourceConfig(src domain.Source) (*ConnectionConfig, error) {
	return parseConnectionConfig(src.Config)
}

// DestinationConfig holds MongoDB destination configuration.
type DestinationConfig struct {
	ConnectionConfig
	// BatchSize is the number of records per insert-many call.
	BatchSize int
}

// ParseDestinationConfig extracts and validates configuration from a Destination.
func ParseDestinationConfig(dst domain.Destination) (*DestinationConfig, error) {
	conn, err := parseConnectionConfig(dst.Config)
	if err != nil {
		return nil, err
	}
	cfg := &DestinationConfig{ConnectionConfig: *conn, BatchSize: DefaultBatchSize}
	if val := dst.Config["batch_size"]; val != "" {
		n, err := strconv.Atoi(val)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: mongodb \"batch_size\" must be a positive integer", domain.ErrInvalidConfig)
		}
		cfg.BatchSize = n
	}
	return cfg, nil
}

// connect establishes a client for one operation. Clients are owned by the
// caller and not shared across workers; the driver is connected explicitly
// here rather than lazily on first use. The returned close function
// disconnects clients dialed here and is a no-op for injected ones.
func (c *ConnectionConfig) connect(ctx context.Context) (*mongo.Client, func(), error) {
	if c.dial != nil {
		client, err := c.dial(ctx)
		if err != nil {
			return nil, nil, err
		}
		return client, func() {}, nil
	}

	uri := c.URI
	if uri == "" {
		uri = fmt.Sprintf("mongodb://%s:%d", c.Host, c.Port)
	}
	opts := options.Client().
		ApplyURI(uri).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1))
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	return client, func() { client.Disconnect(ctx) }, nil
}
