// Package fixture compares the output of a source connector run against
// checked-in expectations: one serialized FileData per document keyed by
// {identifier}.json, plus a directory_structure.json recording the sorted
// relative paths of everything the downloader wrote. Fields that legitimately
// vary between runs are excluded from the comparison by dotted path.
//
// Setting OVERWRITE_FIXTURES=true re-baselines the expectations from live
// output instead of validating against them.
package fixture

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/driftline/ingest/internal/core/domain"
)

// DefaultExcludeFields are the FileData fields that change every run.
var DefaultExcludeFields = []string{
	"local_download_path",
	"metadata.date_processed",
}

// directoryRecordName is the file recording the download tree's shape.
const directoryRecordName = "directory_structure.json"

// Config controls one validation.
type Config struct {
	// Dir is the fixture directory. FileData fixtures live in its
	// file_data subdirectory.
	Dir string

	// ExpectedNumFiles, when positive, asserts how many files the
	// downloader produced.
	ExpectedNumFiles int

	// ExcludeFields are dotted paths dropped from both sides before
	// comparison, e.g. "metadata.date_processed" or
	// "metadata.record_locator.path". A trailing ".*" clears a nested
	// map. Nil means DefaultExcludeFields.
	ExcludeFields []string
}

func (c Config) fileDataDir() string {
	return filepath.Join(c.Dir, "file_data")
}

func (c Config) excludes() []string {
	if c.ExcludeFields == nil {
		return DefaultExcludeFields
	}
	return c.ExcludeFields
}

// Overwrite reports whether fixtures should be re-baselined instead of
// validated, controlled by the OVERWRITE_FIXTURES environment variable.
func Overwrite() bool {
	return strings.EqualFold(os.Getenv("OVERWRITE_FIXTURES"), "true")
}

// Validate compares live output with the fixtures. all is the post-download
// FileData of every document; downloadDir is the root the downloader wrote
// under.
func Validate(cfg Config, all []domain.FileData, downloadDir string) error {
	downloaded, err := relativeFiles(downloadDir)
	if err != nil {
		return err
	}
	if cfg.ExpectedNumFiles > 0 && len(downloaded) != cfg.ExpectedNumFiles {
		return fmt.Errorf("expected %d downloaded files, found %d", cfg.ExpectedNumFiles, len(downloaded))
	}
	if err := checkFileSet(cfg, all); err != nil {
		return err
	}
	if err := checkContents(cfg, all); err != nil {
		return err
	}
	return checkDirectoryStructure(cfg, downloaded)
}

// Update rewrites the fixtures from live output.
func Update(cfg Config, all []domain.FileData, downloadDir string) error {
	if err := os.RemoveAll(cfg.Dir); err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.fileDataDir(), 0o755); err != nil {
		return err
	}
	for _, fd := range all {
		path := filepath.Join(cfg.fileDataDir(), fd.Identifier+".json")
		if err := domain.WriteFileData(fd, path); err != nil {
			return err
		}
	}

	downloaded, err := relativeFiles(downloadDir)
	if err != nil {
		return err
	}
	record := map[string]any{"directory_structure": downloaded}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cfg.Dir, directoryRecordName), data, 0o644)
}

// checkFileSet verifies the identifiers match the fixture files exactly.
func checkFileSet(cfg Config, all []domain.FileData) error {
	expected, err := relativeFiles(cfg.fileDataDir())
	if err != nil {
		return fmt.Errorf("read fixture dir: %w", err)
	}

	current := make([]string, 0, len(all))
	for _, fd := range all {
		current = append(current, fd.Identifier+".json")
	}
	sort.Strings(current)

	if !equalStrings(expected, current) {
		return fmt.Errorf("fixture file set mismatch: expected %v, got %v", expected, current)
	}
	return nil
}

// equalStrings compares element-wise, treating nil and empty as equal.
func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// checkContents diffs each FileData against its fixture, ignoring excluded
// fields.
func checkContents(cfg Config, all []domain.FileData) error {
	var mismatches []string
	for _, fd := range all {
		path := filepath.Join(cfg.fileDataDir(), fd.Identifier+".json")
		expectedRaw, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		var expected map[string]any
		if err := json.Unmarshal(expectedRaw, &expected); err != nil {
			return fmt.Errorf("decode fixture %s: %w", path, err)
		}
		current, err := asMap(fd)
		if err != nil {
			return err
		}

		for _, field := range cfg.excludes() {
			omitField(expected, field)
			omitField(current, field)
		}

		if !reflect.DeepEqual(expected, current) {
			mismatches = append(mismatches, fmt.Sprintf("%s: expected %v, got %v", fd.Identifier, expected, current))
		}
	}
	if len(mismatches) > 0 {
		return fmt.Errorf("fixture content mismatch:\n%s", strings.Join(mismatches, "\n"))
	}
	return nil
}

// checkDirectoryStructure verifies the download tree's shape.
func checkDirectoryStructure(cfg Config, downloaded []string) error {
	data, err := os.ReadFile(filepath.Join(cfg.Dir, directoryRecordName))
	if err != nil {
		return err
	}
	var record struct {
		DirectoryStructure []string `json:"directory_structure"`
	}
	if err := json.Unmarshal(data, &record); err != nil {
		return fmt.Errorf("decode %s: %w", directoryRecordName, err)
	}
	if !equalStrings(record.DirectoryStructure, downloaded) {
		return fmt.Errorf("directory structure mismatch: expected %v, got %v",
			record.DirectoryStructure, downloaded)
	}
	return nil
}

// asMap round-trips a FileData through JSON into a generic map.
func asMap(fd domain.FileData) (map[string]any, error) {
	data, err := json.Marshal(fd)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// omitField removes a dotted path from a nested map. The leaf "*" clears the
// containing map instead of removing one key.
func omitField(m map[string]any, field string) {
	parts := strings.Split(field, ".")
	current := m
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			return
		}
		current = next
	}
	leaf := parts[len(parts)-1]
	if leaf == "*" {
		for k := range current {
			delete(current, k)
		}
		return
	}
	delete(current, leaf)
}

// relativeFiles lists all regular files under root as sorted slash-separated
// relative paths. A missing root yields an empty list.
func relativeFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == root {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
