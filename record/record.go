// Package record implements the ordered field mapping that flows through the
// transcription pipeline.
//
// A Record keeps its keys in insertion order so that the emitted JSON matches
// the field order the upstream produced. Overwriting a key keeps its position;
// deleting a key removes it.
package record

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Record is an ordered mapping from field name to value. Values are strings,
// []byte, json.Number or Go numbers, bools, nil, nested *Record or []any.
// A Record is not safe for concurrent mutation.
type Record struct {
	keys   []string
	values map[string]any
}

// New returns an empty record.
func New() *Record {
	return &Record{values: make(map[string]any)}
}

// FromPairs builds a record from alternating key/value arguments.
//
//	record.FromPairs("path", "/a/audio.mp3", "extra", "v")
func FromPairs(kvs ...any) *Record {
	r := New()
	for i := 0; i+1 < len(kvs); i += 2 {
		key, ok := kvs[i].(string)
		if !ok {
			continue
		}
		r.Set(key, kvs[i+1])
	}
	return r
}

// Len returns the number of fields.
func (r *Record) Len() int { return len(r.keys) }

// Keys returns the field names in order.
func (r *Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Has reports whether key is present.
func (r *Record) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

// Get returns the value for key.
func (r *Record) Get(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

// GetString returns the value for key when it is a string.
func (r *Record) GetString(key string) (string, bool) {
	s, ok := r.values[key].(string)
	return s, ok
}

// GetBytes returns the value for key as bytes. String values are returned as
// their raw bytes.
func (r *Record) GetBytes(key string) ([]byte, bool) {
	switch v := r.values[key].(type) {
	case []byte:
		return v, true
	case string:
		return []byte(v), true
	default:
		return nil, false
	}
}

// Set stores value under key. A new key is appended; an existing key keeps
// its position.
func (r *Record) Set(key string, value any) {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Delete removes key. It is a no-op when the key is absent.
func (r *Record) Delete(key string) {
	if _, ok := r.values[key]; !ok {
		return
	}
	delete(r.values, key)
	for i, k := range r.keys {
		if k == key {
			r.keys = append(r.keys[:i], r.keys[i+1:]...)
			break
		}
	}
}

// Range calls fn for each field in order until fn returns false.
func (r *Record) Range(fn func(key string, value any) bool) {
	for _, k := range r.keys {
		if !fn(k, r.values[k]) {
			return
		}
	}
}

// Clone returns a deep copy. Nested records, byte slices and slices are
// copied; other values are immutable and shared.
func (r *Record) Clone() *Record {
	out := &Record{
		keys:   make([]string, len(r.keys)),
		values: make(map[string]any, len(r.values)),
	}
	copy(out.keys, r.keys)
	for k, v := range r.values {
		out.values[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case *Record:
		if t == nil {
			return t
		}
		return t.Clone()
	case []byte:
		return append([]byte(nil), t...)
	case []any:
		out := make([]any, len(t))
		for i, el := range t {
			out[i] = cloneValue(el)
		}
		return out
	default:
		return v
	}
}

// ToMap returns an unordered copy, mainly for logging.
func (r *Record) ToMap() map[string]any {
	m := make(map[string]any, len(r.values))
	for k, v := range r.values {
		if nested, ok := v.(*Record); ok && nested != nil {
			m[k] = nested.ToMap()
			continue
		}
		m[k] = v
	}
	return m
}

// String renders the record as JSON.
func (r *Record) String() string {
	b, err := r.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("record(%d fields)", r.Len())
	}
	return string(b)
}

// MarshalJSON encodes the record as a JSON object with keys in order.
// []byte values are base64 encoded, as encoding/json does.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
