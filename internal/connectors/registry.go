// Package connectors wires every built-in connector into the registry.
//
// Each connector lives in its own subpackage and exposes typed config parsing
// plus the indexer/downloader or stager/uploader pair for its side of the
// pipeline. RegisterAll is the single place a new connector type is added.
package connectors

import (
	"sync"

	"github.com/driftline/ingest/internal/connectors/github"
	"github.com/driftline/ingest/internal/connectors/local"
	"github.com/driftline/ingest/internal/connectors/mongodb"
	"github.com/driftline/ingest/internal/connectors/redis"
	"github.com/driftline/ingest/internal/connectors/sqlite"
	"github.com/driftline/ingest/internal/core/domain"
	"github.com/driftline/ingest/internal/core/ports/driven"
	"github.com/driftline/ingest/internal/registry"
)

var registerOnce sync.Once

// RegisterAll registers every built-in connector type. It is called once at
// process start, before any workflow is resolved; later calls are no-ops.
func RegisterAll() {
	registerOnce.Do(func() {
		registerLocal()
		registerSQLite()
		registerMongoDB()
		registerRedis()
		registerGitHub()
	})
}

func registerLocal() {
	registry.RegisterSource(local.ConnectorType, registry.SourceEntry{
		NewIndexer: func(src domain.Source) (driven.Indexer, error) {
			cfg, err := local.ParseSourceConfig(src)
			if err != nil {
				return nil, err
			}
			return local.NewIndexer(cfg), nil
		},
		NewDownloader: func(src domain.Source, downloadDir string) (driven.Downloader, error) {
			if _, err := local.ParseSourceConfig(src); err != nil {
				return nil, err
			}
			return local.NewDownloader(downloadDir), nil
		},
	})
	registry.RegisterDestination(local.ConnectorType, registry.DestinationEntry{
		NewUploadStager: func(domain.Destination) (driven.UploadStager, error) {
			return local.NewUploadStager(), nil
		},
		NewUploader: func(dst domain.Destination) (driven.Uploader, error) {
			cfg, err := local.ParseDestinationConfig(dst)
			if err != nil {
				return nil, err
			}
			return local.NewUploader(cfg), nil
		},
	})
}

func registerSQLite() {
	registry.RegisterSource(sqlite.ConnectorType, registry.SourceEntry{
		NewIndexer: func(src domain.Source) (driven.Indexer, error) {
			cfg, err := sqlite.ParseSourceConfig(src)
			if err != nil {
				return nil, err
			}
			return sqlite.NewIndexer(cfg), nil
		},
		NewDownloader: func(src domain.Source, downloadDir string) (driven.Downloader, error) {
			cfg, err := sqlite.ParseSourceConfig(src)
			if err != nil {
				return nil, err
			}
			return sqlite.NewDownloader(cfg, downloadDir), nil
		},
	})
	registry.RegisterDestination(sqlite.ConnectorType, registry.DestinationEntry{
		NewUploadStager: func(domain.Destination) (driven.UploadStager, error) {
			return sqlite.NewUploadStager(), nil
		},
		NewUploader: func(dst domain.Destination) (driven.Uploader, error) {
			cfg, err := sqlite.ParseDestinationConfig(dst)
			if err != nil {
				return nil, err
			}
			return sqlite.NewUploader(cfg), nil
		},
	})
}

func registerMongoDB() {
	registry.RegisterSource(mongodb.ConnectorType, registry.SourceEntry{
		NewIndexer: func(src domain.Source) (driven.Indexer, error) {
			cfg, err := mongodb.ParseSourceConfig(src)
			if err != nil {
				return nil, err
			}
			return mongodb.NewIndexer(cfg), nil
		},
		NewDownloader: func(src domain.Source, downloadDir string) (driven.Downloader, error) {
			cfg, err := mongodb.ParseSourceConfig(src)
			if err != nil {
				return nil, err
			}
			return mongodb.NewDownloader(cfg, downloadDir), nil
		},
	})
	registry.RegisterDestination(mongodb.ConnectorType, registry.DestinationEntry{
		NewUploadStager: func(domain.Destination) (driven.UploadStager, error) {
			return mongodb.NewUploadStager(), nil
		},
		NewUploader: func(dst domain.Destination) (driven.Uploader, error) {
			cfg, err := mongodb.ParseDestinationConfig(dst)
			if err != nil {
				return nil, err
			}
			return mongodb.NewUploader(cfg), nil
		},
	})
}

func registerRedis() {
	registry.RegisterDestination(redis.ConnectorType, registry.DestinationEntry{
		NewUploadStager: func(domain.Destination) (driven.UploadStager, error) {
			return redis.NewUploadStager(), nil
		},
		NewUploader: func(dst domain.Destination) (driven.Uploader, error) {
			cfg, err := redis.ParseDestinationConfig(dst)
			if err != nil {
				return nil, err
			}
			return redis.NewUploader(cfg), nil
		},
	})
}

func registerGitHub() {
	registry.RegisterSource(github.ConnectorType, registry.SourceEntry{
		NewIndexer: func(src domain.Source) (driven.Indexer, error) {
			cfg, err := github.ParseSourceConfig(src)
			if err != nil {
				return nil, err
			}
			return github.NewIndexer(cfg), nil
		},
		NewDownloader: func(src domain.Source, downloadDir string) (driven.Downloader, error) {
			cfg, err := github.ParseSourceConfig(src)
			if err != nil {
				return nil, err
			}
			return github.NewDownloader(cfg, downloadDir), nil
		},
	})
}
