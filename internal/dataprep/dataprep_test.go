package dataprep

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlatten(t *testing.T) {
	t.Run("joins nested keys with underscores", func(t *testing.T) {
		flat := Flatten(map[string]any{
			"id": "r1",
			"metadata": map[string]any{
				"page": 3,
				"origin": map[string]any{
					"host": "db1",
				},
			},
		})
		assert.Equal(t, map[string]any{
			"id":                   "r1",
			"metadata_page":        3,
			"metadata_origin_host": "db1",
		}, flat)
	})

	t.Run("keeps list values intact", func(t *testing.T) {
		flat := Flatten(map[string]any{"tags": []any{"a", "b"}})
		assert.Equal(t, []any{"a", "b"}, flat["tags"])
	})

	t.Run("empty map flattens to empty map", func(t *testing.T) {
		assert.Empty(t, Flatten(map[string]any{}))
	})
}

func TestFlattenedValues(t *testing.T) {
	t.Run("joins values in sorted key order", func(t *testing.T) {
		got := FlattenedValues(map[string]any{
			"title": "hello",
			"body":  "world",
			"meta":  map[string]any{"page": 2},
		})
		assert.Equal(t, "world\n2\nhello", got)
	})

	t.Run("same input yields same text", func(t *testing.T) {
		rec := map[string]any{"a": 1, "b": 2, "c": 3, "d": 4}
		assert.Equal(t, FlattenedValues(rec), FlattenedValues(rec))
	})
}

func TestBatches(t *testing.T) {
	records := func(n int) []map[string]any {
		out := make([]map[string]any, n)
		for i := range out {
			out[i] = map[string]any{"id": fmt.Sprintf("r%d", i)}
		}
		return out
	}

	t.Run("250 records at size 100 yields 100/100/50", func(t *testing.T) {
		batches := Batches(records(250), 100)
		require.Len(t, batches, 3)
		assert.Len(t, batches[0], 100)
		assert.Len(t, batches[1], 100)
		assert.Len(t, batches[2], 50)
		assert.Equal(t, "r0", batches[0][0]["id"])
		assert.Equal(t, "r100", batches[1][0]["id"])
		assert.Equal(t, "r249", batches[2][49]["id"])
	})

	t.Run("exact multiple has no short tail", func(t *testing.T) {
		batches := Batches(records(200), 100)
		require.Len(t, batches, 2)
		assert.Len(t, batches[1], 100)
	})

	t.Run("non-positive size means one batch", func(t *testing.T) {
		batches := Batches(records(7), 0)
		require.Len(t, batches, 1)
		assert.Len(t, batches[0], 7)
	})

	t.Run("no records means no batches", func(t *testing.T) {
		assert.Nil(t, Batches(nil, 100))
	})
}

func TestRecordIDs(t *testing.T) {
	t.Run("prefers id then element_id then position", func(t *testing.T) {
		ids := RecordIDs([]map[string]any{
			{"id": "a", "element_id": "x"},
			{"element_id": "y"},
			{"text": "no id at all"},
		})
		assert.Equal(t, []string{"a", "y", "record[2]"}, ids)
	})
}

func TestElementID(t *testing.T) {
	t.Run("stable across calls", func(t *testing.T) {
		assert.Equal(t, ElementID("doc-1", 0), ElementID("doc-1", 0))
	})

	t.Run("distinct per document and position", func(t *testing.T) {
		assert.NotEqual(t, ElementID("doc-1", 0), ElementID("doc-1", 1))
		assert.NotEqual(t, ElementID("doc-1", 0), ElementID("doc-2", 0))
	})
}

func TestElementsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "staged", "doc-1.json")
	records := []map[string]any{
		{"element_id": "e1", "text": "hello"},
		{"element_id": "e2", "text": "world"},
	}

	require.NoError(t, WriteElements(path, records))

	got, err := ReadElements(path)
	require.NoError(t, err)
	assert.Equal(t, records, got)
}

func TestCanonicalTimestamp(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"rfc3339", "2024-03-01T10:30:00Z", "2024-03-01T10:30:00.000000Z"},
		{"rfc3339 with offset", "2024-03-01T12:30:00+02:00", "2024-03-01T10:30:00.000000Z"},
		{"naive datetime", "2024-03-01T10:30:00", "2024-03-01T10:30:00.000000Z"},
		{"space separated", "2024-03-01 10:30:00", "2024-03-01T10:30:00.000000Z"},
		{"date only", "2024-03-01", "2024-03-01T00:00:00.000000Z"},
		{"unix epoch", "1709289000", "2024-03-01T10:30:00.000000Z"},
		{"unix epoch fractional", "1709289000.5", "2024-03-01T10:30:00.500000Z"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := CanonicalTimestamp(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := CanonicalTimestamp("last tuesday")
		assert.Error(t, err)
	})

	t.Run("rejects empty", func(t *testing.T) {
		_, err := CanonicalTimestamp("  ")
		assert.Error(t, err)
	})
}

func TestCanonicalizeRecordTimes(t *testing.T) {
	t.Run("rewrites top-level and nested metadata fields", func(t *testing.T) {
		rec := map[string]any{
			"date_created": "2024-03-01",
			"metadata": map[string]any{
				"last_modified": "1709289000",
				"filename":      "a.txt",
			},
		}
		CanonicalizeRecordTimes(rec)

		assert.Equal(t, "2024-03-01T00:00:00.000000Z", rec["date_created"])
		meta := rec["metadata"].(map[string]any)
		assert.Equal(t, "2024-03-01T10:30:00.000000Z", meta["last_modified"])
		assert.Equal(t, "a.txt", meta["filename"])
	})

	t.Run("unparseable values are left untouched", func(t *testing.T) {
		rec := map[string]any{"date_modified": "not a time"}
		CanonicalizeRecordTimes(rec)
		assert.Equal(t, "not a time", rec["date_modified"])
	})

	t.Run("absent fields stay absent", func(t *testing.T) {
		rec := map[string]any{"text": "hello"}
		CanonicalizeRecordTimes(rec)
		assert.NotContains(t, rec, "date_processed")
	})
}
