package domain

import (
	"encoding/json"
	"fmt"
	"os"
)

// FileData is the canonical unit of work: identity, provenance and metadata
// for one source document as it flows through index, download, stage and
// upload. It serializes to a flat JSON map so it can be checkpointed to disk
// and diffed against fixtures.
type FileData struct {
	// Identifier is stable across re-runs of the same source item and is
	// never changed after the indexer assigns it. It is the on-disk key
	// for staged output and the idempotency key for downstream dedup.
	Identifier string `json:"identifier"`

	// ConnectorType names the connector that produced this record.
	ConnectorType string `json:"connector_type"`

	// SourceIdentifiers holds the logical path fields, independent of any
	// local filesystem location.
	SourceIdentifiers SourceIdentifiers `json:"source_identifiers"`

	// Metadata is provenance captured at index time and enriched by the
	// downloader.
	Metadata SourceMetadata `json:"metadata"`

	// AdditionalMetadata carries connector-specific enrichment (wiki page
	// title, channel id, ...). Downstream stages merge into it; they never
	// replace it wholesale.
	AdditionalMetadata map[string]any `json:"additional_metadata,omitempty"`

	// LocalDownloadPath is set by the downloader once content lands
	// locally. Absent before that.
	LocalDownloadPath string `json:"local_download_path,omitempty"`
}

// SourceIdentifiers are the logical path fields for a document at its source.
type SourceIdentifiers struct {
	// Fullpath is the complete path at the source (bucket key, absolute
	// file path, API path).
	Fullpath string `json:"fullpath"`

	// Filename is the base name of the document.
	Filename string `json:"filename"`

	// RelPath is the path relative to the indexed root. It determines
	// where the downloader writes content under the download root, so
	// re-downloading the same identifier overwrites rather than
	// duplicates.
	RelPath string `json:"rel_path,omitempty"`
}

// RelativePath returns the rel path if set, falling back to the filename.
func (s SourceIdentifiers) RelativePath() string {
	if s.RelPath != "" {
		return s.RelPath
	}
	return s.Filename
}

// SourceMetadata is provenance for one document.
//
// RecordLocator is the only field a downloader may consult to re-fetch the
// same item; it must carry everything needed for that fetch (no hidden
// indexer state) and must round-trip exactly through JSON.
type SourceMetadata struct {
	DateCreated   string         `json:"date_created,omitempty"`
	DateModified  string         `json:"date_modified,omitempty"`
	DateProcessed string         `json:"date_processed,omitempty"`
	Version       string         `json:"version,omitempty"`
	RecordLocator map[string]any `json:"record_locator,omitempty"`
	URL           string         `json:"url,omitempty"`
}

// Clone returns a deep copy. Fixture validation snapshots FileData before and
// after download, so copies must not share the locator or metadata maps.
func (f FileData) Clone() FileData {
	out := f
	out.Metadata.RecordLocator = cloneMap(f.Metadata.RecordLocator)
	out.AdditionalMetadata = cloneMap(f.AdditionalMetadata)
	return out
}

// MergeAdditional merges enrichment into AdditionalMetadata without dropping
// keys written by earlier stages. Later values win on key collision.
func (f *FileData) MergeAdditional(extra map[string]any) {
	if len(extra) == 0 {
		return
	}
	if f.AdditionalMetadata == nil {
		f.AdditionalMetadata = make(map[string]any, len(extra))
	}
	for k, v := range extra {
		f.AdditionalMetadata[k] = v
	}
}

// Validate reports whether the record satisfies the pipeline contract.
func (f FileData) Validate() error {
	if f.Identifier == "" {
		return fmt.Errorf("%w: file data missing identifier", ErrInvalidInput)
	}
	if f.ConnectorType == "" {
		return fmt.Errorf("%w: file data %q missing connector type", ErrInvalidInput, f.Identifier)
	}
	return nil
}

// MarshalFileData serializes to indented JSON, the form used for checkpoint
// files and fixtures.
func MarshalFileData(f FileData) ([]byte, error) {
	return json.MarshalIndent(f, "", "  ")
}

// UnmarshalFileData reconstructs a FileData from its serialized form.
func UnmarshalFileData(data []byte) (FileData, error) {
	var f FileData
	if err := json.Unmarshal(data, &f); err != nil {
		return FileData{}, fmt.Errorf("decode file data: %w", err)
	}
	return f, nil
}

// WriteFileData checkpoints a FileData to path.
func WriteFileData(f FileData, path string) error {
	data, err := MarshalFileData(f)
	if err != nil {
		return fmt.Errorf("encode file data %q: %w", f.Identifier, err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadFileData restores a FileData checkpoint from path.
func ReadFileData(path string) (FileData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileData{}, err
	}
	return UnmarshalFileData(data)
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
