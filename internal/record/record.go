// Package record defines the ordered, string-valued row shared by every
// dataset. Field sets differ from row to row, so a Record is an ordered
// mapping rather than a struct; absent fields read as the empty string.
package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// IDField is the field carrying a record's stable identity.
const IDField = "id"

// NameField is the display name every editable record must carry.
const NameField = "name"

// Record is an ordered mapping from field name to value. Keys keep their
// first-insertion order. Copies share storage; use Clone before mutating a
// record you do not own.
type Record struct {
	keys   []string
	values map[string]string
}

// New builds a record from alternating name, value pairs. A trailing name
// without a value gets "".
func New(pairs ...string) Record {
	var r Record
	for i := 0; i < len(pairs); i += 2 {
		v := ""
		if i+1 < len(pairs) {
			v = pairs[i+1]
		}
		r.Set(pairs[i], v)
	}
	return r
}

// FromMap builds a record from m. Keys listed in order come first in that
// order; remaining keys follow sorted so the result is deterministic.
func FromMap(m map[string]string, order []string) Record {
	var r Record
	for _, k := range order {
		if v, ok := m[k]; ok {
			r.Set(k, v)
		}
	}
	rest := make([]string, 0, len(m))
	for k := range m {
		if !r.Has(k) {
			rest = append(rest, k)
		}
	}
	slices.Sort(rest)
	for _, k := range rest {
		r.Set(k, m[k])
	}
	return r
}

// Get returns the value for name and whether the field is present.
func (r Record) Get(name string) (string, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Value returns the value for name, or "" when absent.
func (r Record) Value(name string) string {
	return r.values[name]
}

// ID returns the identity field.
func (r Record) ID() string {
	return r.values[IDField]
}

// Has reports whether name is present, even with an empty value.
func (r Record) Has(name string) bool {
	_, ok := r.values[name]
	return ok
}

// Set assigns value to name, appending name to the key order if new.
func (r *Record) Set(name, value string) {
	if r.values == nil {
		r.values = make(map[string]string)
	}
	if _, ok := r.values[name]; !ok {
		r.keys = append(r.keys, name)
	}
	r.values[name] = value
}

// Delete removes name from the record.
func (r *Record) Delete(name string) {
	if _, ok := r.values[name]; !ok {
		return
	}
	delete(r.values, name)
	for i, k := range r.keys {
		if k == name {
			r.keys = append(r.keys[:i:i], r.keys[i+1:]...)
			break
		}
	}
}

// Keys returns field names in order. The slice is a copy.
func (r Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of fields.
func (r Record) Len() int {
	return len(r.keys)
}

// Clone returns a deep copy.
func (r Record) Clone() Record {
	c := Record{
		keys:   make([]string, len(r.keys)),
		values: make(map[string]string, len(r.values)),
	}
	copy(c.keys, r.keys)
	for k, v := range r.values {
		c.values[k] = v
	}
	return c
}

// Override returns a copy of r with every field of patch applied on top.
// Fields in patch replace r's values, including empty strings; fields only
// in r keep their value.
func (r Record) Override(patch Record) Record {
	out := r.Clone()
	for _, k := range patch.keys {
		out.Set(k, patch.values[k])
	}
	return out
}

// Map returns the fields as a plain map.
func (r Record) Map() map[string]string {
	m := make(map[string]string, len(r.values))
	for k, v := range r.values {
		m[k] = v
	}
	return m
}

// Equal reports whether both records hold the same fields and values,
// ignoring order.
func (r Record) Equal(o Record) bool {
	if len(r.values) != len(o.values) {
		return false
	}
	for k, v := range r.values {
		ov, ok := o.values[k]
		if !ok || ov != v {
			return false
		}
	}
	return true
}

// String renders the record as {k:v, ...} in key order.
func (r Record) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s:%q", k, r.values[k])
	}
	b.WriteByte('}')
	return b.String()
}

// MarshalJSON encodes the record as a JSON object in key order.
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
		vb, err := json.Marshal(r.values[k])
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

// UnmarshalJSON decodes a JSON object keeping document key order. Strings
// are taken as-is, null becomes "", and any other value is stored as its
// compact JSON text (numbers and booleans read naturally that way).
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("record: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("record: expected object, got %v", tok)
	}

	*r = Record{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("record: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("record: unexpected key %v", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("record: field %q: %w", key, err)
		}
		val, err := scalarText(raw)
		if err != nil {
			return fmt.Errorf("record: field %q: %w", key, err)
		}
		r.Set(key, val)
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("record: %w", err)
	}
	return nil
}

func scalarText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
		return "", nil
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	default:
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return "", err
		}
		return buf.String(), nil
	}
}
