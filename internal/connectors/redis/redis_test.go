package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftline/ingest/internal/core/domain"
	"github.com/driftline/ingest/internal/dataprep"
)

func TestParseDestinationConfig(t *testing.T) {
	t.Run("addr is required", func(t *testing.T) {
		_, err := ParseDestinationConfig(domain.Destination{Config: map[string]string{}})
		assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	})

	t.Run("defaults", func(t *testing.T) {
		cfg, err := ParseDestinationConfig(domain.Destination{Config: map[string]string{
			"addr": "localhost:6379",
		}})
		require.NoError(t, err)
		assert.Equal(t, DefaultKeyPrefix, cfg.KeyPrefix)
		assert.Equal(t, DefaultBatchSize, cfg.BatchSize)
		assert.Equal(t, 0, cfg.DB)
	})

	t.Run("db must be a non-negative integer", func(t *testing.T) {
		for _, bad := range []string{"-1", "two"} {
			_, err := ParseDestinationConfig(domain.Destination{Config: map[string]string{
				"addr": "localhost:6379",
				"db":   bad,
			}})
			assert.ErrorIs(t, err, domain.ErrInvalidConfig, "db=%s", bad)
		}
	})

	t.Run("batch size must be positive", func(t *testing.T) {
		_, err := ParseDestinationConfig(domain.Destination{Config: map[string]string{
			"addr":       "localhost:6379",
			"batch_size": "0",
		}})
		assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	})
}

func TestUploadStager(t *testing.T) {
	stage := func(t *testing.T, records []map[string]any) []map[string]any {
		t.Helper()
		dir := t.TempDir()
		elementsPath := filepath.Join(dir, "in.json")
		require.NoError(t, dataprep.WriteElements(elementsPath, records))

		fd := domain.FileData{Identifier: "doc-1", ConnectorType: ConnectorType}
		outPath, err := NewUploadStager().Run(elementsPath, fd, filepath.Join(dir, "staged"), "doc-1")
		require.NoError(t, err)

		staged, err := dataprep.ReadElements(outPath)
		require.NoError(t, err)
		return staged
	}

	t.Run("assigns stable ids and keeps nesting", func(t *testing.T) {
		records := []map[string]any{{
			"text":     "hello",
			"metadata": map[string]any{"page": float64(3)},
		}}
		first := stage(t, records)
		second := stage(t, records)

		require.Len(t, first, 1)
		assert.NotEmpty(t, first[0]["id"])
		assert.Equal(t, first[0]["id"], second[0]["id"])
		assert.Equal(t, map[string]any{"page": float64(3)}, first[0]["metadata"])
	})

	t.Run("canonicalizes timestamps", func(t *testing.T) {
		staged := stage(t, []map[string]any{{"text": "x", "date_modified": "2024-03-01 10:30:00"}})
		assert.Equal(t, "2024-03-01T10:30:00.000000Z", staged[0]["date_modified"])
	})

	t.Run("sibling artifacts of one document get distinct ids", func(t *testing.T) {
		dir := t.TempDir()
		elementsPath := filepath.Join(dir, "in.json")
		require.NoError(t, dataprep.WriteElements(elementsPath, []map[string]any{{"text": "hello"}}))

		fd := domain.FileData{Identifier: "doc-1", ConnectorType: ConnectorType}
		stager := NewUploadStager()
		firstPath, err := stager.Run(elementsPath, fd, filepath.Join(dir, "staged"), "doc-1-0")
		require.NoError(t, err)
		secondPath, err := stager.Run(elementsPath, fd, filepath.Join(dir, "staged"), "doc-1-1")
		require.NoError(t, err)

		first, err := dataprep.ReadElements(firstPath)
		require.NoError(t, err)
		second, err := dataprep.ReadElements(secondPath)
		require.NoError(t, err)
		assert.NotEqual(t, first[0]["id"], second[0]["id"])
	})
}

func stagedFile(t *testing.T, records []map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "staged.json")
	require.NoError(t, dataprep.WriteElements(path, records))
	return path
}

func elementRecords(n int) []map[string]any {
	out := make([]map[string]any, n)
	for i := range out {
		out[i] = map[string]any{"id": fmt.Sprintf("el-%03d", i), "text": fmt.Sprintf("element %d", i)}
	}
	return out
}

func TestUploaderPrecheck(t *testing.T) {
	t.Run("succeeds against a live server", func(t *testing.T) {
		srv := miniredis.RunT(t)
		up := NewUploader(&DestinationConfig{Addr: srv.Addr(), KeyPrefix: "elements", BatchSize: 100})
		assert.NoError(t, up.Precheck(context.Background()))
	})

	t.Run("unreachable server is a destination connection error", func(t *testing.T) {
		srv := miniredis.RunT(t)
		addr := srv.Addr()
		srv.Close()

		up := NewUploader(&DestinationConfig{Addr: addr, KeyPrefix: "elements", BatchSize: 100})
		err := up.Precheck(context.Background())
		require.Error(t, err)
		assert.True(t, domain.IsConnectionError(err))
	})
}

func TestUploaderRun(t *testing.T) {
	fd := domain.FileData{Identifier: "doc-1", ConnectorType: ConnectorType}

	t.Run("writes every record under its prefixed key", func(t *testing.T) {
		srv := miniredis.RunT(t)
		up := NewUploader(&DestinationConfig{Addr: srv.Addr(), KeyPrefix: "elements", BatchSize: 100})

		staged := stagedFile(t, []map[string]any{
			{"id": "e1", "text": "hello"},
			{"id": "e2", "text": "world"},
		})
		require.NoError(t, up.Run(context.Background(), staged, fd))

		raw, err := srv.Get("elements:e1")
		require.NoError(t, err)
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(raw), &rec))
		assert.Equal(t, "hello", rec["text"])

		assert.Len(t, srv.Keys(), 2)
	})

	t.Run("250 records at batch size 100 all land", func(t *testing.T) {
		srv := miniredis.RunT(t)
		up := NewUploader(&DestinationConfig{Addr: srv.Addr(), KeyPrefix: "elements", BatchSize: 100})

		staged := stagedFile(t, elementRecords(250))
		require.NoError(t, up.Run(context.Background(), staged, fd))
		assert.Len(t, srv.Keys(), 250)
	})

	t.Run("re-running the same upload is idempotent", func(t *testing.T) {
		srv := miniredis.RunT(t)
		up := NewUploader(&DestinationConfig{Addr: srv.Addr(), KeyPrefix: "elements", BatchSize: 100})

		staged := stagedFile(t, elementRecords(10))
		require.NoError(t, up.Run(context.Background(), staged, fd))
		require.NoError(t, up.Run(context.Background(), staged, fd))
		assert.Len(t, srv.Keys(), 10)
	})

	t.Run("sibling artifacts of one document keep separate keys", func(t *testing.T) {
		srv := miniredis.RunT(t)
		up := NewUploader(&DestinationConfig{Addr: srv.Addr(), KeyPrefix: "elements", BatchSize: 100})

		dir := t.TempDir()
		elementsPath := filepath.Join(dir, "in.json")
		require.NoError(t, dataprep.WriteElements(elementsPath, []map[string]any{
			{"text": "hello"}, {"text": "world"},
		}))

		// One document yielded two downloaded artifacts; uploading the
		// second must not overwrite the first's records.
		stager := NewUploadStager()
		for _, name := range []string{"doc-1-0", "doc-1-1"} {
			stagedPath, err := stager.Run(elementsPath, fd, filepath.Join(dir, "staged"), name)
			require.NoError(t, err)
			require.NoError(t, up.Run(context.Background(), stagedPath, fd))
		}
		assert.Len(t, srv.Keys(), 4)
	})

	t.Run("failed batch names exactly its records", func(t *testing.T) {
		srv := miniredis.RunT(t)
		up := NewUploader(&DestinationConfig{Addr: srv.Addr(), KeyPrefix: "elements", BatchSize: 100})

		srv.SetError("server over capacity")

		staged := stagedFile(t, elementRecords(250))
		err := up.Run(context.Background(), staged, fd)
		require.Error(t, err)

		var writeErr *domain.WriteError
		require.ErrorAs(t, err, &writeErr)
		assert.Equal(t, ConnectorType, writeErr.ConnectorType)
		require.Len(t, writeErr.RecordIDs, 100)
		assert.Equal(t, "el-000", writeErr.RecordIDs[0])
		assert.Equal(t, "el-099", writeErr.RecordIDs[99])
	})
}
