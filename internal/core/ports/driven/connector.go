package driven

import (
	"context"
	"path/filepath"

	"github.com/driftline/ingest/internal/core/domain"
)

// Indexer enumerates the documents available at a source without fetching
// content. Each connector type implements this for its source side.
type Indexer interface {
	// Type returns the connector type identifier.
	Type() string

	// Precheck verifies connectivity and credentials before enumeration
	// begins. Failures are returned as a domain.ConnectionError.
	Precheck(ctx context.Context) error

	// Run produces a lazy, possibly unbounded stream of FileData, one per
	// discoverable document. Both channels are closed when enumeration
	// ends. Calling Run again re-enumerates from scratch, and for a fixed
	// remote state two runs yield the same identifiers in the same order.
	//
	// An error enumerating a single item is sent on the error channel and
	// enumeration continues; a systemic failure (auth expired, host gone)
	// is sent as a domain.ConnectionError and ends the stream. Items
	// already yielded remain valid either way.
	Run(ctx context.Context) (<-chan domain.FileData, <-chan error)
}

// DownloadResponse pairs a downloaded artifact's local path with the FileData
// describing it, LocalDownloadPath set.
type DownloadResponse struct {
	FileData domain.FileData
	Path     string
}

// Downloader fetches one document's content to local storage.
//
// A single FileData may decompose into several fetched artifacts (an archive
// member per file, a thread per message), so Run returns zero or more
// responses. Most connectors return exactly one.
type Downloader interface {
	// Type returns the connector type identifier.
	Type() string

	// Run fetches the content behind fd's record locator and writes it
	// under the downloader's download root, at a path derived from the
	// source identifiers so a re-download overwrites rather than
	// duplicates. The returned responses carry fd enriched with
	// LocalDownloadPath and any content-derived metadata.
	//
	// A vanished item is reported as a domain.ItemNotFoundError; any other
	// remote failure as a domain.ConnectionError. The downloader performs
	// no retries itself.
	Run(ctx context.Context, fd domain.FileData) ([]DownloadResponse, error)
}

// UploadStager reshapes partitioned element records into the form a
// destination expects: ID assignment, timestamp canonicalization,
// nested-structure flattening. It is a pure local transform and must not
// perform network I/O.
//
// The contract: every input record yields exactly one output record, the
// transform is deterministic given the same input and FileData, and fields
// absent from the input stay absent unless the destination schema requires a
// value.
type UploadStager interface {
	// Run reads the JSON array of element records at elementsPath,
	// conforms each record, and writes the result to
	// {outputDir}/{outputFilename}.json, returning that path.
	Run(elementsPath string, fd domain.FileData, outputDir, outputFilename string) (string, error)
}

// Uploader writes staged records to a destination in batches.
type Uploader interface {
	// Type returns the connector type identifier.
	Type() string

	// Precheck verifies the destination is reachable. Failures are
	// returned as a domain.ConnectionError.
	Precheck(ctx context.Context) error

	// Run reads the staged file and writes its records to the destination
	// in batches of the configured size. A rejected batch is returned as a
	// domain.WriteError naming the failed records; batches already written
	// are not rolled back (at-least-once across the file). Idempotency of
	// a re-run is the destination's concern, typically upsert-by-id.
	Run(ctx context.Context, stagedPath string, fd domain.FileData) error
}

// DownloadPath derives the local path for a document under a download root.
// The mapping depends only on the source identifiers, which keeps
// re-downloads of the same identifier at the same location.
func DownloadPath(root string, fd domain.FileData) string {
	return filepath.Join(root, filepath.FromSlash(fd.SourceIdentifiers.RelativePath()))
}
