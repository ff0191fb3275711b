// Package toon implements the flat record encoding used between pipeline
// stages: "key:value" pairs joined by '|'. There is no escaping; keys and
// values must not contain either delimiter.
package toon

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	Delim = "|"
	Sep   = ":"
)

// Record is an ordered map of string keys to string values with unique keys.
// The zero value is an empty record ready for use.
type Record struct {
	keys []string
	vals map[string]string
}

// New builds a record from alternating key/value pairs. A trailing key
// without a value is ignored.
func New(kv ...string) Record {
	var r Record
	for i := 0; i+1 < len(kv); i += 2 {
		r.Set(kv[i], kv[i+1])
	}
	return r
}

// Set assigns a value. New keys are appended; existing keys keep their
// position. Empty keys are ignored.
func (r *Record) Set(key, value string) {
	if key == "" {
		return
	}
	if r.vals == nil {
		r.vals = make(map[string]string)
	}
	if _, ok := r.vals[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.vals[key] = value
}

// Get returns the value for key and whether it was present.
func (r Record) Get(key string) (string, bool) {
	v, ok := r.vals[key]
	return v, ok
}

// Value returns the value for key or "" when absent.
func (r Record) Value(key string) string { return r.vals[key] }

// Has reports whether key is present.
func (r Record) Has(key string) bool {
	_, ok := r.vals[key]
	return ok
}

// Keys returns the keys in insertion order.
func (r Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of pairs.
func (r Record) Len() int { return len(r.keys) }

// Clone returns a deep copy.
func (r Record) Clone() Record {
	var c Record
	for _, k := range r.keys {
		c.Set(k, r.vals[k])
	}
	return c
}

// Merge sets every pair of other onto r, in other's order.
func (r *Record) Merge(other Record) {
	for _, k := range other.keys {
		r.Set(k, other.vals[k])
	}
}

// Map returns an unordered copy of the pairs.
func (r Record) Map() map[string]string {
	m := make(map[string]string, len(r.keys))
	for _, k := range r.keys {
		m[k] = r.vals[k]
	}
	return m
}

// Equal reports whether both records hold the same pairs in the same order.
func (r Record) Equal(o Record) bool {
	if len(r.keys) != len(o.keys) {
		return false
	}
	for i, k := range r.keys {
		if o.keys[i] != k || o.vals[k] != r.vals[k] {
			return false
		}
	}
	return true
}

// MarshalJSON renders the record as a JSON object preserving key order.
func (r Record) MarshalJSON() ([]byte, error) {
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
		vb, err := json.Marshal(r.vals[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a flat JSON object, keeping key order. Non-string
// values are stored as their JSON text.
func (r *Record) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*r = Record{}
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("toon: expected object, got %v", tok)
	}
	var out Record
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			v = string(raw)
		}
		out.Set(kt.(string), v)
	}
	*r = out
	return nil
}

// Encode renders r as a flat record string. Encode of an empty record is "".
func Encode(r Record) string {
	if len(r.keys) == 0 {
		return ""
	}
	var b strings.Builder
	for i, k := range r.keys {
		if i > 0 {
			b.WriteString(Delim)
		}
		b.WriteString(k)
		b.WriteString(Sep)
		b.WriteString(r.vals[k])
	}
	return b.String()
}

// Decode parses a flat record string. It never fails: pairs without a
// separator or with an empty key are skipped, the first separator splits key
// from value, and a repeated key keeps its first position with the last value.
func Decode(s string) Record {
	var r Record
	if s == "" {
		return r
	}
	for _, pair := range strings.Split(s, Delim) {
		k, v, ok := strings.Cut(pair, Sep)
		if !ok || k == "" {
			continue
		}
		r.Set(k, v)
	}
	return r
}

// Valid reports whether s can be stored as a key or value without corrupting
// a record.
func Valid(s string) bool {
	return !strings.ContainsAny(s, Delim+Sep)
}

var scrubber = strings.NewReplacer(Delim, "/", Sep, ";", "\r\n", " ", "\n", " ", "\r", " ")

// Scrub rewrites free text so it is safe to store as a value: delimiters are
// replaced and newlines flattened. This is lossy.
func Scrub(s string) string {
	return scrubber.Replace(s)
}
