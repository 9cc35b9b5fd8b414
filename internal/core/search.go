package core

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/JonMunkholm/bondweb/internal/record"
)

// Fold lowercases s and strips diacritics so "Société" matches "societe".
func Fold(s string) string {
	// Transformers carry state; build one per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return cases.Fold().String(out)
}

// Matches reports whether any of fields in r contains query after folding.
// An empty query matches everything.
func Matches(r record.Record, fields []string, query string) bool {
	q := Fold(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(Fold(r.Value(f)), q) {
			return true
		}
	}
	return false
}

// Slug turns a display name into a URL key: lowercase with whitespace runs
// replaced by "-".
func Slug(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}

// RecordKey is the URL key of r: its id, or the slug of its name when the
// id is empty.
func RecordKey(r record.Record) string {
	if id := r.ID(); id != "" {
		return id
	}
	return Slug(r.Value(record.NameField))
}
