package mongodb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/driftline/ingest/internal/core/domain"
	"github.com/driftline/ingest/internal/core/ports/driven"
	"github.com/driftline/ingest/internal/dataprep"
)

// Ensure Downloader implements the interface.
var _ driven.Downloader = (*Downloader)(nil)

// Downloader materializes one document as a text file: the document's field
// values minus _id, flattened and newline-joined.
type Downloader struct {
	config      *ConnectionConfig
	downloadDir string
}

// NewDownloader creates a MongoDB downloader writing under downloadDir.
func NewDownloader(cfg *ConnectionConfig, downloadDir string) *Downloader {
	return &Downloader{config: cfg, downloadDir: downloadDir}
}

// Type returns the connector type identifier.
func (d *Downloader) Type() string {
	return ConnectorType
}

// Run fetches the document named by the record locator and writes its joined
// field values under the download root.
func (d *Downloader) Run(ctx context.Context, fd domain.FileData) ([]driven.DownloadResponse, error) {
	docID, ok := fd.Metadata.RecordLocator["document_id"].(string)
	if !ok || docID == "" {
		return nil, fmt.Errorf("%w: record locator for %q has no document_id", domain.ErrInvalidInput, fd.Identifier)
	}

	client, closeClient, err := d.config.connect(ctx)
	if err != nil {
		return nil, domain.NewSourceConnectionError(ConnectorType, err)
	}
	defer closeClient()

	// Identifiers that parse as ObjectIDs are looked up as such; anything
	// else is matched as a raw value.
	var filterID any = docID
	if objID, err := primitive.ObjectIDFromHex(docID); err == nil {
		filterID = objID
	}

	collection := client.Database(d.config.Database).Collection(d.config.Collection)
	var doc bson.M
	if err := collection.FindOne(ctx, bson.M{"_id": filterID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &domain.ItemNotFoundError{Identifier: fd.Identifier}
		}
		return nil, domain.NewSourceConnectionError(ConnectorType, err)
	}

	delete(doc, "_id")
	content := dataprep.FlattenedValues(plainMap(doc))

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

// plainMap converts decoded BSON values into plain Go maps so generic
// flattening sees nested documents.
func plainMap(doc bson.M) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = plainValue(v)
	}
	return out
}

func plainValue(v any) any {
	switch val := v.(type) {
	case bson.M:
		return plainMap(val)
	case bson.D:
		nested := make(map[string]any, len(val))
		for _, elem := range val {
			nested[elem.Key] = plainValue(elem.Value)
		}
		return nested
	case bson.A:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = plainValue(item)
		}
		return out
	default:
		return v
	}
}
