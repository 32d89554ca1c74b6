package trial

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Record holds one trial's condition fields as an opaque key→value map.
// The engine never interprets field values; it only copies and forwards them.
type Record map[string]any

// Clone returns a shallow copy of the record.
// Field values are copied by assignment; the engine treats them as opaque.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// SortedKeys returns the record's field names in lexicographic order.
// Used wherever deterministic iteration over fields is required.
func (r Record) SortedKeys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value for a field name.
func (r Record) Get(key string) (any, bool) {
	v, ok := r[key]
	return v, ok
}

// MarshalOrdered serializes a record as JSON with sorted keys.
// Plain json.Marshal of a map already sorts keys, but going through an
// explicit buffer keeps the output free of HTML escaping, which matters
// for byte-stable golden files and stored traces.
func (r Record) MarshalOrdered() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.SortedKeys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := marshalNoEscape(k)
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')
		valBytes, err := marshalNoEscape(r[k])
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// marshalNoEscape marshals v without HTML escaping and without the
// trailing newline json.Encoder appends.
func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Set is an immutable ordered collection of trial records.
//
// A Set is built once from condition data and shared read-only between the
// cursor and any snapshots taken during a run. Records are cloned on the way
// in and on the way out, so neither the caller nor the engine can mutate
// shared state through a Set.
type Set struct {
	records []Record
}

// NewSet builds a Set from a slice of records.
// The records are cloned; later mutation of the input does not affect the Set.
func NewSet(records []Record) *Set {
	cloned := make([]Record, len(records))
	for i, r := range records {
		cloned[i] = r.Clone()
	}
	return &Set{records: cloned}
}

// Len returns the number of records in the set.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.records)
}

// At returns a copy of the record at index i.
// Returns (nil, false) when i is outside [0, Len()).
func (s *Set) At(i int) (Record, bool) {
	if s == nil || i < 0 || i >= len(s.records) {
		return nil, false
	}
	return s.records[i].Clone(), true
}

// Fields returns the union of field names across all records, sorted.
func (s *Set) Fields() []string {
	if s == nil {
		return nil
	}
	seen := make(map[string]bool)
	for _, r := range s.records {
		for k := range r {
			seen[k] = true
		}
	}
	fields := make([]string, 0, len(seen))
	for k := range seen {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	return fields
}
