package local

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/driftline/ingest/internal/core/domain"
	"github.com/driftline/ingest/internal/core/ports/driven"
)

// ConnectorType identifies the local filesystem connector.
const ConnectorType = "local"

// Ensure Indexer implements the interface.
var _ driven.Indexer = (*Indexer)(nil)

// Indexer enumerates files under a root directory.
type Indexer struct {
	config *SourceConfig
}

// NewIndexer creates a local indexer.
func NewIndexer(cfg *SourceConfig) *Indexer {
	return &Indexer{config: cfg}
}

// Type returns the connector type identifier.
func (i *Indexer) Type() string {
	return ConnectorType
}

// Precheck verifies the root directory exists and is readable.
func (i *Indexer) Precheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := os.Stat(i.config.Path)
	if err != nil {
		return domain.NewSourceConnectionError(ConnectorType, err)
	}
	if !info.IsDir() {
		return domain.NewSourceConnectionError(ConnectorType,
			fmt.Errorf("path %q is not a directory", i.config.Path))
	}
	return nil
}

// Run walks the root directory and yields one FileData per regular file.
// Paths are emitted in sorted order so enumeration is deterministic.
func (i *Indexer) Run(ctx context.Context) (<-chan domain.FileData, <-chan error) {
	docs := make(chan domain.FileData)
	errs := make(chan error, 1)

	go func() {
		defer close(docs)
		defer close(errs)

		paths, err := i.listFiles()
		if err != nil {
			errs <- domain.NewSourceConnectionError(ConnectorType, err)
			return
		}

		for _, rel := range paths {
			select {
			case <-ctx.Done():
				return
			default:
			}

			fd, err := i.fileData(rel)
			if err != nil {
				// A file that vanished mid-walk only skips that
				// item.
				select {
				case errs <- fmt.Errorf("index %s: %w", rel, err):
				case <-ctx.Done():
					return
				}
				continue
			}

			select {
			case <-ctx.Done():
				return
			case docs <- fd:
			}
		}
	}()

	return docs, errs
}

func (i *Indexer) listFiles() ([]string, error) {
	var paths []string
	root := i.config.Path
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !i.config.Recursive && path != root {
				return fs.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

func (i *Indexer) fileData(rel string) (domain.FileData, error) {
	fullpath, err := filepath.Abs(filepath.Join(i.config.Path, filepath.FromSlash(rel)))
	if err != nil {
		return domain.FileData{}, err
	}
	info, err := os.Stat(fullpath)
	if err != nil {
		return domain.FileData{}, err
	}

	modified := info.ModTime().UTC()
	return domain.FileData{
		Identifier:    Identifier(rel),
		ConnectorType: ConnectorType,
		SourceIdentifiers: domain.SourceIdentifiers{
			Fullpath: fullpath,
			Filename: filepath.Base(fullpath),
			RelPath:  rel,
		},
		Metadata: domain.SourceMetadata{
			DateCreated:   strconv.FormatInt(modified.Unix(), 10),
			DateModified:  strconv.FormatInt(modified.Unix(), 10),
			DateProcessed: strconv.FormatInt(time.Now().Unix(), 10),
			Version:       fmt.Sprintf("%d-%d", info.Size(), modified.Unix()),
			RecordLocator: map[string]any{
				"protocol": "local",
				"path":     fullpath,
			},
			URL: "file://" + filepath.ToSlash(fullpath),
		},
		AdditionalMetadata: map[string]any{},
	}, nil
}

// Identifier derives the stable document identifier from a root-relative
// path.
func Identifier(relPath string) string {
	sum := sha256.Sum256([]byte(relPath))
	return hex.EncodeToString(sum[:])
}
