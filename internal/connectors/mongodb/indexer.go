package mongodb

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/driftline/ingest/internal/core/domain"
	"github.com/driftline/ingest/internal/core/ports/driven"
)

// ConnectorType identifies the MongoDB connector.
const ConnectorType = "mongodb"

// Ensure Indexer implements the interface.
var _ driven.Indexer = (*Indexer)(nil)

// Indexer enumerates the documents of a collection by their _id.
type Indexer struct {
	config *ConnectionConfig
}

// NewIndexer creates a MongoDB indexer.
func NewIndexer(cfg *ConnectionConfig) *Indexer {
	return &Indexer{config: cfg}
}

// Type returns the connector type identifier.
func (i *Indexer) Type() string {
	return ConnectorType
}

// Precheck validates the connection with a ping.
func (i *Indexer) Precheck(ctx context.Context) error {
	client, closeClient, err := i.config.connect(ctx)
	if err != nil {
		return domain.NewSourceConnectionError(ConnectorType, err)
	}
	defer closeClient()

	if err := client.Ping(ctx, nil); err != nil {
		return domain.NewSourceConnectionError(ConnectorType, err)
	}
	return nil
}

// Run yields one FileData per document. IDs are sorted by their string form
// so enumeration order is deterministic for a fixed collection state.
func (i *Indexer) Run(ctx context.Context) (<-chan domain.FileData, <-chan error) {
	docs := make(chan domain.FileData)
	errs := make(chan error, 1)

	go func() {
		defer close(docs)
		defer close(errs)

		client, closeClient, err := i.config.connect(ctx)
		if err != nil {
			errs <- domain.NewSourceConnectionError(ConnectorType, err)
			return
		}
		defer closeClient()

		collection := client.Database(i.config.Database).Collection(i.config.Collection)
		ids, err := collection.Distinct(ctx, "_id", bson.D{})
		if err != nil {
			errs <- domain.NewSourceConnectionError(ConnectorType, err)
			return
		}

		sort.Slice(ids, func(a, b int) bool {
			return idString(ids[a]) < idString(ids[b])
		})

		for _, rawID := range ids {
			select {
			case <-ctx.Done():
				return
			case docs <- i.fileData(rawID):
			}
		}
	}()

	return docs, errs
}

func (i *Indexer) fileData(rawID any) domain.FileData {
	id := idString(rawID)

	// ObjectIDs embed their creation time.
	var dateCreated string
	if objID, ok := rawID.(primitive.ObjectID); ok {
		dateCreated = objID.Timestamp().UTC().Format(time.RFC3339)
	}

	return domain.FileData{
		Identifier:    id,
		ConnectorType: ConnectorType,
		SourceIdentifiers: domain.SourceIdentifiers{
			Fullpath: id,
			Filename: id,
			RelPath:  id + ".txt",
		},
		Metadata: domain.SourceMetadata{
			DateCreated:   dateCreated,
			DateProcessed: strconv.FormatInt(time.Now().Unix(), 10),
			RecordLocator: map[string]any{
				"database":    i.config.Database,
				"collection":  i.config.Collection,
				"document_id": id,
			},
		},
		AdditionalMetadata: map[string]any{},
	}
}

// idString renders a document _id in its canonical string form.
func idString(rawID any) string {
	switch id := rawID.(type) {
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	default:
		return fmt.Sprintf("%v", id)
	}
}
