package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftline/ingest/internal/core/domain"
	"github.com/driftline/ingest/internal/fixture"
)

func TestParseSourceConfig(t *testing.T) {
	t.Run("path is required", func(t *testing.T) {
		_, err := ParseSourceConfig(domain.Source{Type: ConnectorType, Config: map[string]string{}})
		assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	})

	t.Run("recursive defaults to true", func(t *testing.T) {
		cfg, err := ParseSourceConfig(domain.Source{Config: map[string]string{"path": "/data"}})
		require.NoError(t, err)
		assert.True(t, cfg.Recursive)
	})

	t.Run("recursive can be disabled", func(t *testing.T) {
		cfg, err := ParseSourceConfig(domain.Source{Config: map[string]string{
			"path":      "/data",
			"recursive": "false",
		}})
		require.NoError(t, err)
		assert.False(t, cfg.Recursive)
	})

	t.Run("rejects a non-boolean recursive", func(t *testing.T) {
		_, err := ParseSourceConfig(domain.Source{Config: map[string]string{
			"path":      "/data",
			"recursive": "sometimes",
		}})
		assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	})
}

func TestParseDestinationConfig(t *testing.T) {
	t.Run("path is required", func(t *testing.T) {
		_, err := ParseDestinationConfig(domain.Destination{Config: map[string]string{}})
		assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	})

	t.Run("accepts a path", func(t *testing.T) {
		cfg, err := ParseDestinationConfig(domain.Destination{Config: map[string]string{"path": "/out"}})
		require.NoError(t, err)
		assert.Equal(t, "/out", cfg.Path)
	})
}

// collect drains an indexer run, returning the documents in emitted order.
func collect(t *testing.T, idx *Indexer) []domain.FileData {
	t.Helper()
	docs, errs := idx.Run(context.Background())

	var out []domain.FileData
	done := make(chan struct{})
	go func() {
		defer close(done)
		for err := range errs {
			t.Errorf("unexpected index error: %v", err)
		}
	}()
	for fd := range docs {
		out = append(out, fd)
	}
	<-done
	return out
}

func TestIndexerPrecheck(t *testing.T) {
	t.Run("succeeds against a readable directory", func(t *testing.T) {
		idx := NewIndexer(&SourceConfig{Path: t.TempDir(), Recursive: true})
		assert.NoError(t, idx.Precheck(context.Background()))
	})

	t.Run("missing directory is a source connection error", func(t *testing.T) {
		idx := NewIndexer(&SourceConfig{Path: filepath.Join(t.TempDir(), "gone"), Recursive: true})
		err := idx.Precheck(context.Background())
		require.Error(t, err)
		assert.True(t, domain.IsConnectionError(err))
	})

	t.Run("regular file is a source connection error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "file.txt")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

		idx := NewIndexer(&SourceConfig{Path: path, Recursive: true})
		assert.True(t, domain.IsConnectionError(idx.Precheck(context.Background())))
	})
}

func TestIndexerRun(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.txt"), []byte("bee"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("ay"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "nested", "c.txt"), []byte("sea"), 0o644))

	t.Run("emits all files in sorted order", func(t *testing.T) {
		idx := NewIndexer(&SourceConfig{Path: root, Recursive: true})
		docs := collect(t, idx)

		require.Len(t, docs, 3)
		assert.Equal(t, "a.txt", docs[0].SourceIdentifiers.RelPath)
		assert.Equal(t, "b.txt", docs[1].SourceIdentifiers.RelPath)
		assert.Equal(t, "nested/c.txt", docs[2].SourceIdentifiers.RelPath)
	})

	t.Run("two runs agree on identifiers and order", func(t *testing.T) {
		idx := NewIndexer(&SourceConfig{Path: root, Recursive: true})
		first := collect(t, idx)
		second := collect(t, idx)

		require.Len(t, second, len(first))
		for i := range first {
			assert.Equal(t, first[i].Identifier, second[i].Identifier)
		}
	})

	t.Run("non-recursive skips subdirectories", func(t *testing.T) {
		idx := NewIndexer(&SourceConfig{Path: root, Recursive: false})
		docs := collect(t, idx)

		require.Len(t, docs, 2)
		assert.Equal(t, "a.txt", docs[0].SourceIdentifiers.RelPath)
		assert.Equal(t, "b.txt", docs[1].SourceIdentifiers.RelPath)
	})

	t.Run("populates provenance", func(t *testing.T) {
		idx := NewIndexer(&SourceConfig{Path: root, Recursive: true})
		docs := collect(t, idx)

		fd := docs[0]
		assert.Equal(t, ConnectorType, fd.ConnectorType)
		assert.Equal(t, "a.txt", fd.SourceIdentifiers.Filename)
		assert.Equal(t, "local", fd.Metadata.RecordLocator["protocol"])
		assert.NotEmpty(t, fd.Metadata.Version)
		assert.NotEmpty(t, fd.Metadata.DateModified)
		assert.NoError(t, fd.Validate())
	})

	t.Run("cancellation stops enumeration", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		idx := NewIndexer(&SourceConfig{Path: root, Recursive: true})
		docs, errs := idx.Run(ctx)
		for range docs {
		}
		for range errs {
		}
	})
}

func TestIdentifier(t *testing.T) {
	t.Run("stable per relative path", func(t *testing.T) {
		assert.Equal(t, Identifier("a/b.txt"), Identifier("a/b.txt"))
		assert.NotEqual(t, Identifier("a/b.txt"), Identifier("a/c.txt"))
	})
}

func TestDownloader(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "doc.txt"), []byte("hello world"), 0o644))

	index := func(t *testing.T) domain.FileData {
		t.Helper()
		docs := collect(t, NewIndexer(&SourceConfig{Path: root, Recursive: true}))
		require.Len(t, docs, 1)
		return docs[0]
	}

	t.Run("copies content into the download root", func(t *testing.T) {
		downloadDir := t.TempDir()
		dl := NewDownloader(downloadDir)

		responses, err := dl.Run(context.Background(), index(t))
		require.NoError(t, err)
		require.Len(t, responses, 1)

		resp := responses[0]
		assert.Equal(t, filepath.Join(downloadDir, "doc.txt"), resp.Path)
		assert.Equal(t, resp.Path, resp.FileData.LocalDownloadPath)

		content, err := os.ReadFile(resp.Path)
		require.NoError(t, err)
		assert.Equal(t, "hello world", string(content))
		assert.Equal(t, int64(11), resp.FileData.AdditionalMetadata["filesize_bytes"])
	})

	t.Run("re-download overwrites rather than duplicates", func(t *testing.T) {
		downloadDir := t.TempDir()
		dl := NewDownloader(downloadDir)
		fd := index(t)

		first, err := dl.Run(context.Background(), fd)
		require.NoError(t, err)
		second, err := dl.Run(context.Background(), fd)
		require.NoError(t, err)
		assert.Equal(t, first[0].Path, second[0].Path)

		entries, err := os.ReadDir(downloadDir)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("vanished file is item-not-found", func(t *testing.T) {
		fd := index(t)
		fd.Metadata.RecordLocator["path"] = filepath.Join(root, "vanished.txt")

		_, err := NewDownloader(t.TempDir()).Run(context.Background(), fd)
		assert.True(t, domain.IsItemNotFound(err))
	})

	t.Run("locator without path is invalid input", func(t *testing.T) {
		fd := index(t)
		delete(fd.Metadata.RecordLocator, "path")

		_, err := NewDownloader(t.TempDir()).Run(context.Background(), fd)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestUploadStager(t *testing.T) {
	t.Run("passes element records through unchanged", func(t *testing.T) {
		dir := t.TempDir()
		elementsPath := filepath.Join(dir, "doc.json")
		require.NoError(t, os.WriteFile(elementsPath, []byte(`[{"element_id":"e1","text":"hi"}]`), 0o644))

		outDir := filepath.Join(dir, "staged")
		stager := NewUploadStager()
		outPath, err := stager.Run(elementsPath, domain.FileData{Identifier: "doc"}, outDir, "doc")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(outDir, "doc.json"), outPath)

		staged, err := os.ReadFile(outPath)
		require.NoError(t, err)
		assert.JSONEq(t, `[{"element_id":"e1","text":"hi"}]`, string(staged))
	})
}

func TestUploader(t *testing.T) {
	t.Run("precheck creates the destination directory", func(t *testing.T) {
		target := filepath.Join(t.TempDir(), "out")
		up := NewUploader(&DestinationConfig{Path: target})

		require.NoError(t, up.Precheck(context.Background()))
		info, err := os.Stat(target)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("places staged file under its staged name", func(t *testing.T) {
		dir := t.TempDir()
		stagedPath := filepath.Join(dir, "doc-1.json")
		require.NoError(t, os.WriteFile(stagedPath, []byte(`[{"text":"hi"}]`), 0o644))

		target := filepath.Join(dir, "out")
		up := NewUploader(&DestinationConfig{Path: target})
		fd := domain.FileData{Identifier: "doc-1", ConnectorType: ConnectorType}
		require.NoError(t, up.Run(context.Background(), stagedPath, fd))

		content, err := os.ReadFile(filepath.Join(target, "doc-1.json"))
		require.NoError(t, err)
		assert.JSONEq(t, `[{"text":"hi"}]`, string(content))
	})

	t.Run("sibling artifacts of one document land as separate files", func(t *testing.T) {
		dir := t.TempDir()
		target := filepath.Join(dir, "out")
		up := NewUploader(&DestinationConfig{Path: target})
		fd := domain.FileData{Identifier: "doc-1", ConnectorType: ConnectorType}

		for i, body := range []string{`[{"text":"first"}]`, `[{"text":"second"}]`} {
			stagedPath := filepath.Join(dir, fmt.Sprintf("doc-1-%d.json", i))
			require.NoError(t, os.WriteFile(stagedPath, []byte(body), 0o644))
			require.NoError(t, up.Run(context.Background(), stagedPath, fd))
		}

		first, err := os.ReadFile(filepath.Join(target, "doc-1-0.json"))
		require.NoError(t, err)
		assert.JSONEq(t, `[{"text":"first"}]`, string(first))
		second, err := os.ReadFile(filepath.Join(target, "doc-1-1.json"))
		require.NoError(t, err)
		assert.JSONEq(t, `[{"text":"second"}]`, string(second))
	})
}

// TestFixtures replays the checked-in source tree through the indexer and
// downloader and diffs the result against testdata/expected. Run with
// OVERWRITE_FIXTURES=true to re-baseline after intentional changes.
func TestFixtures(t *testing.T) {
	idx := NewIndexer(&SourceConfig{Path: filepath.Join("testdata", "source"), Recursive: true})
	require.NoError(t, idx.Precheck(context.Background()))

	downloadDir := t.TempDir()
	dl := NewDownloader(downloadDir)

	var all []domain.FileData
	for _, fd := range collect(t, idx) {
		responses, err := dl.Run(context.Background(), fd)
		require.NoError(t, err)
		for _, resp := range responses {
			all = append(all, resp.FileData)
		}
	}

	cfg := fixture.Config{
		Dir:              filepath.Join("testdata", "expected"),
		ExpectedNumFiles: 3,
		ExcludeFields: []string{
			"local_download_path",
			"source_identifiers.fullpath",
			"metadata.date_created",
			"metadata.date_modified",
			"metadata.date_processed",
			"metadata.version",
			"metadata.record_locator.path",
			"metadata.url",
		},
	}
	if fixture.Overwrite() {
		require.NoError(t, fixture.Update(cfg, all, downloadDir))
		return
	}
	require.NoError(t, fixture.Validate(cfg, all, downloadDir))
}
