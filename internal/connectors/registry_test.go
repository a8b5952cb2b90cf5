package connectors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftline/ingest/internal/core/domain"
	"github.com/driftline/ingest/internal/registry"
)

func TestRegisterAll(t *testing.T) {
	RegisterAll()
	// Idempotent: a second call must not panic on duplicates.
	RegisterAll()

	t.Run("every built-in type resolves", func(t *testing.T) {
		assert.Equal(t, []string{"github", "local", "mongodb", "sqlite"}, registry.SourceTypes())
		assert.Equal(t, []string{"local", "mongodb", "redis", "sqlite"}, registry.DestinationTypes())
	})

	t.Run("factories validate config eagerly", func(t *testing.T) {
		entry, err := registry.Source("local")
		require.NoError(t, err)

		_, err = entry.NewIndexer(domain.Source{Type: "local", Config: map[string]string{}})
		assert.ErrorIs(t, err, domain.ErrInvalidConfig)

		idx, err := entry.NewIndexer(domain.Source{Type: "local", Config: map[string]string{"path": t.TempDir()}})
		require.NoError(t, err)
		assert.Equal(t, "local", idx.Type())
	})

	t.Run("destination factories build both halves", func(t *testing.T) {
		entry, err := registry.Destination("redis")
		require.NoError(t, err)

		stager, err := entry.NewUploadStager(domain.Destination{Type: "redis"})
		require.NoError(t, err)
		assert.NotNil(t, stager)

		_, err = entry.NewUploader(domain.Destination{Type: "redis", Config: map[string]string{}})
		assert.ErrorIs(t, err, domain.ErrInvalidConfig)

		up, err := entry.NewUploader(domain.Destination{Type: "redis", Config: map[string]string{"addr": "localhost:6379"}})
		require.NoError(t, err)
		assert.Equal(t, "redis", up.Type())
	})
}
