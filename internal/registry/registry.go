// Package registry maps connector-type names to the factories that build
// their collaborators. A source entry bundles the indexer and downloader
// factories, a destination entry the stager and uploader factories.
//
// Registration happens once at process start, before any workflow runs;
// looking up an unknown type is a configuration error surfaced before any
// I/O begins.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/driftline/ingest/internal/core/domain"
	"github.com/driftline/ingest/internal/core/ports/driven"
)

// SourceEntry bundles the factories for a source connector type.
type SourceEntry struct {
	// NewIndexer builds an indexer from the source configuration,
	// eagerly validating it.
	NewIndexer func(src domain.Source) (driven.Indexer, error)

	// NewDownloader builds a downloader that writes content under
	// downloadDir.
	NewDownloader func(src domain.Source, downloadDir string) (driven.Downloader, error)
}

// DestinationEntry bundles the factories for a destination connector type.
type DestinationEntry struct {
	// NewUploadStager builds the stager that conforms element records to
	// the destination schema.
	NewUploadStager func(dst domain.Destination) (driven.UploadStager, error)

	// NewUploader builds the uploader that writes staged records in
	// batches.
	NewUploader func(dst domain.Destination) (driven.Uploader, error)
}

var (
	mu           sync.RWMutex
	sources      = make(map[string]SourceEntry)
	destinations = make(map[string]DestinationEntry)
)

// RegisterSource adds a source connector type. Registering the same type
// twice panics: the registry is wired once at startup and a duplicate means
// two connectors claim the same name.
func RegisterSource(connectorType string, entry SourceEntry) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := sources[connectorType]; exists {
		panic(fmt.Sprintf("registry: duplicate source connector type %q", connectorType))
	}
	sources[connectorType] = entry
}

// RegisterDestination adds a destination connector type.
func RegisterDestination(connectorType string, entry DestinationEntry) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := destinations[connectorType]; exists {
		panic(fmt.Sprintf("registry: duplicate destination connector type %q", connectorType))
	}
	destinations[connectorType] = entry
}

// Source looks up the entry for a source connector type.
func Source(connectorType string) (SourceEntry, error) {
	mu.RLock()
	defer mu.RUnlock()
	entry, ok := sources[connectorType]
	if !ok {
		return SourceEntry{}, fmt.Errorf("%w: no source connector %q", domain.ErrUnsupportedType, connectorType)
	}
	return entry, nil
}

// Destination looks up the entry for a destination connector type.
func Destination(connectorType string) (DestinationEntry, error) {
	mu.RLock()
	defer mu.RUnlock()
	entry, ok := destinations[connectorType]
	if !ok {
		return DestinationEntry{}, fmt.Errorf("%w: no destination connector %q", domain.ErrUnsupportedType, connectorType)
	}
	return entry, nil
}

// SourceTypes returns the registered source connector types, sorted.
func SourceTypes() []string {
	mu.RLock()
	defer mu.RUnlock()
	types := make([]string, 0, len(sources))
	for t := range sources {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// DestinationTypes returns the registered destination connector types, sorted.
func DestinationTypes() []string {
	mu.RLock()
	defer mu.RUnlock()
	types := make([]string, 0, len(destinations))
	for t := range destinations {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// reset clears all registrations. Test use only.
func reset() {
	mu.Lock()
	defer mu.Unlock()
	sources = make(map[string]SourceEntry)
	destinations = make(map[string]DestinationEntry)
}
