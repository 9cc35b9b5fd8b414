// Package reconcile merges an authoritative record set with its edit
// overlay and serialises the effective set back to delimited text.
package reconcile

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/bondweb/internal/overlay"
	"github.com/JonMunkholm/bondweb/internal/record"
	"github.com/JonMunkholm/bondweb/internal/tabular"
)

// Merge returns the effective record set: authoritative records minus
// deletions, with modifications applied, followed by additions in the
// order they were made. Every output record carries the union of all
// field names seen plus the overlay's custom fields, missing ones set to
// "". Neither input is modified.
func Merge(authoritative []record.Record, ov overlay.Overlay) []record.Record {
	deleted := make(map[string]bool, len(ov.Deletions))
	for _, id := range ov.Deletions {
		deleted[id] = true
	}

	out := make([]record.Record, 0, len(authoritative)+len(ov.Additions))
	for _, r := range authoritative {
		id := r.ID()
		if deleted[id] {
			continue
		}
		if mod, ok := ov.Modifications[id]; ok {
			out = append(out, r.Override(mod))
			continue
		}
		out = append(out, r.Clone())
	}
	for _, r := range ov.Additions {
		out = append(out, r.Clone())
	}

	fields := appendUnique(FieldUnion(out), ov.CustomFields...)
	for i := range out {
		for _, f := range fields {
			if !out[i].Has(f) {
				out[i].Set(f, "")
			}
		}
	}
	return out
}

// FieldUnion returns every field name across records in order of first
// appearance.
func FieldUnion(records []record.Record) []string {
	var fields []string
	seen := make(map[string]bool)
	for _, r := range records {
		for _, k := range r.Keys() {
			if !seen[k] {
				seen[k] = true
				fields = append(fields, k)
			}
		}
	}
	return fields
}

func appendUnique(fields []string, extra ...string) []string {
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		seen[f] = true
	}
	for _, f := range extra {
		if !seen[f] {
			seen[f] = true
			fields = append(fields, f)
		}
	}
	return fields
}

// Serialize renders records as comma-delimited text: a header of
// FieldUnion(records) and one line per record, lines joined by "\n" with no
// trailing newline. An empty set serialises to "".
func Serialize(records []record.Record) string {
	if len(records) == 0 {
		return ""
	}
	fields := FieldUnion(records)

	lines := make([]string, 0, len(records)+1)
	lines = append(lines, tabular.FormatRow(fields, tabular.Comma))

	values := make([]string, len(fields))
	for _, r := range records {
		for i, f := range fields {
			values[i] = r.Value(f)
		}
		lines = append(lines, tabular.FormatRow(values, tabular.Comma))
	}
	return strings.Join(lines, "\n")
}

// CheckComplete verifies that every record exposes the same field set.
func CheckComplete(records []record.Record) error {
	if len(records) == 0 {
		return nil
	}
	want := FieldUnion(records)
	for i, r := range records {
		if r.Len() != len(want) {
			return fmt.Errorf("record %d (id %q) has %d fields, want %d", i, r.ID(), r.Len(), len(want))
		}
	}
	return nil
}
