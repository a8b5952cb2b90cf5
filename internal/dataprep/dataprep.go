// Package dataprep holds the small data-shaping helpers shared by connectors:
// flattening nested records, slicing record lists into upload batches, reading
// and writing element-record files, and canonicalizing timestamps to the wire
// format destinations expect.
package dataprep

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// WireTimeFormat is the single timestamp format staged records carry.
const WireTimeFormat = "2006-01-02T15:04:05.000000Z"

// Flatten collapses a nested map into a single level. Nested keys are joined
// with underscores ("metadata" + "page" -> "metadata_page"); list values are
// kept as-is. Keys in the result are sorted so output order is deterministic.
func Flatten(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	flattenInto(out, "", m)
	return out
}

func flattenInto(out map[string]any, prefix string, m map[string]any) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "_" + k
		}
		if nested, ok := v.(map[string]any); ok {
			flattenInto(out, key, nested)
			continue
		}
		out[key] = v
	}
}

// FlattenedValues returns the values of a flattened map joined by newlines,
// in sorted key order. Database connectors use this to turn one record into
// downloadable text content.
func FlattenedValues(m map[string]any) string {
	flat := Flatten(m)
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	values := make([]string, 0, len(keys))
	for _, k := range keys {
		values = append(values, fmt.Sprintf("%v", flat[k]))
	}
	return strings.Join(values, "\n")
}

// Batches slices records into consecutive chunks of at most size elements.
// The final chunk holds the remainder. A non-positive size yields a single
// batch with everything.
func Batches(records []map[string]any, size int) [][]map[string]any {
	if size <= 0 || len(records) == 0 {
		if len(records) == 0 {
			return nil
		}
		return [][]map[string]any{records}
	}
	out := make([][]map[string]any, 0, (len(records)+size-1)/size)
	for start := 0; start < len(records); start += size {
		end := start + size
		if end > len(records) {
			end = len(records)
		}
		out = append(out, records[start:end])
	}
	return out
}

// RecordIDs extracts the per-record identifiers from a batch, for naming the
// records involved in a failed write. Records without an "id" or "element_id"
// field are named by position.
func RecordIDs(records []map[string]any) []string {
	ids := make([]string, len(records))
	for i, rec := range records {
		switch {
		case stringField(rec, "id") != "":
			ids[i] = stringField(rec, "id")
		case stringField(rec, "element_id") != "":
			ids[i] = stringField(rec, "element_id")
		default:
			ids[i] = fmt.Sprintf("record[%d]", i)
		}
	}
	return ids
}

// ElementID derives a stable per-record ID: a name-based UUID of the owning
// artifact's staged name and the record's position. The staged name is unique
// per downloaded artifact, so sibling artifacts of one document never share
// IDs, and restaging the same input yields the same IDs.
func ElementID(name string, idx int) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name+"/"+strconv.Itoa(idx))).String()
}

func stringField(rec map[string]any, key string) string {
	if v, ok := rec[key].(string); ok {
		return v
	}
	return ""
}

// ReadElements loads a staged or partitioned element file: a JSON array of
// records with string keys.
func ReadElements(path string) ([]map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []map[string]any
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode elements file %s: %w", path, err)
	}
	return records, nil
}

// WriteElements writes records as a JSON array to path, creating parent
// directories as needed.
func WriteElements(path string, records []map[string]any) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode elements: %w", err)
	}
	if err := os.MkdirAll(parentDir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func parentDir(path string) string {
	if idx := strings.LastIndexByte(path, os.PathSeparator); idx > 0 {
		return path[:idx]
	}
	if idx := strings.LastIndexByte(path, '/'); idx > 0 {
		return path[:idx]
	}
	return "."
}

// timestampFields are the record fields holding timestamps that stagers
// rewrite into WireTimeFormat.
var timestampFields = []string{"date_created", "date_modified", "date_processed", "last_modified"}

// CanonicalizeRecordTimes rewrites the known timestamp fields of a record,
// and of its nested "metadata" map, into WireTimeFormat. Fields that are
// absent stay absent; values that do not parse are left untouched rather
// than defaulted.
func CanonicalizeRecordTimes(rec map[string]any) {
	canonicalizeTimes(rec)
	if meta, ok := rec["metadata"].(map[string]any); ok {
		canonicalizeTimes(meta)
	}
}

func canonicalizeTimes(m map[string]any) {
	for _, field := range timestampFields {
		raw, ok := m[field].(string)
		if !ok {
			continue
		}
		if canonical, err := CanonicalTimestamp(raw); err == nil {
			m[field] = canonical
		}
	}
}

// timeLayouts are the source formats CanonicalTimestamp accepts, tried in
// order.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// CanonicalTimestamp converts a timestamp in any accepted source form
// (RFC 3339 variants, date-only, or a Unix epoch number) to WireTimeFormat
// in UTC.
func CanonicalTimestamp(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("empty timestamp")
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC().Format(WireTimeFormat), nil
		}
	}
	if epoch, err := strconv.ParseFloat(value, 64); err == nil {
		sec := int64(epoch)
		nsec := int64((epoch - float64(sec)) * float64(time.Second))
		return time.Unix(sec, nsec).UTC().Format(WireTimeFormat), nil
	}
	return "", fmt.Errorf("unrecognized timestamp %q", value)
}
