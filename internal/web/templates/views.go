package templates

import (
	"slices"
	"strings"
	"unicode"

	"github.com/JonMunkholm/bondweb/internal/config"
	"github.com/JonMunkholm/bondweb/internal/core"
	"github.com/JonMunkholm/bondweb/internal/notify"
	"github.com/JonMunkholm/bondweb/internal/overlay"
	"github.com/JonMunkholm/bondweb/internal/record"
)

// ErrorView describes a failed page load.
type ErrorView struct {
	Title    string
	Message  string
	Action   string
	Code     string
	Location string // source that failed to load, if any
	RetryURL string
	BackURL  string
}

// ListView is a dataset listing, optionally filtered.
type ListView struct {
	Def     core.DatasetDefinition
	Records []record.Record
	Total   int
	Query   string
}

// DetailView is a single record page.
type DetailView struct {
	Def    core.DatasetDefinition
	Record record.Record
}

// RequestView is the state of the institution request form.
type RequestView struct {
	Form     notify.Request
	Error    string
	Sent     bool
	Disabled bool
}

// LoginView is the state of the admin login form.
type LoginView struct {
	Error    string
	Disabled bool
}

// AdminView is the admin panel for one dataset.
type AdminView struct {
	Def          core.DatasetDefinition
	Backend      string // config.BackendCSV or config.BackendPostgres
	Records      []record.Record
	Total        int
	Query        string
	CustomFields []string
	Pending      overlay.Counts
	Form         record.Record // add form values to re-render
	Error        core.UserMessage
	Notice       string
	Editable     []DatasetLink
}

// local reports whether edits are kept in an overlay, which is what makes
// custom fields and clearing available.
func (v AdminView) local() bool {
	return v.Backend == config.BackendCSV
}

// EditView is the edit form for one record.
type EditView struct {
	Def          core.DatasetDefinition
	ID           string
	Values       record.Record
	CustomFields []string
	Error        core.UserMessage
}

// fields returns the form fields of the edit page. The id is shown in the
// heading, never as an input.
func (v EditView) fields() []core.FormField {
	var out []core.FormField
	for _, f := range v.Def.FormFields {
		if f.Name != record.IDField {
			out = append(out, f)
		}
	}
	return out
}

// extra returns the declared custom fields plus any other field the record
// carries that has no form input.
func (v EditView) extra() []string {
	fields := v.fields()
	out := slices.Clone(v.CustomFields)
	for _, k := range v.Values.Keys() {
		if k != record.IDField && !hasField(fields, k) && !slices.Contains(out, k) {
			out = append(out, k)
		}
	}
	return out
}

// extraFields lists the non-empty fields of r that the detail page does not
// already show.
func extraFields(def core.DatasetDefinition, r record.Record) []string {
	var out []string
	for _, k := range r.Keys() {
		if r.Value(k) == "" || slices.Contains(def.DetailFields, k) || k == "website" || k == "link" {
			continue
		}
		out = append(out, k)
	}
	return out
}

// customInputs drops extra names that already have a form input.
func customInputs(fields []core.FormField, extra []string) []string {
	var out []string
	for _, name := range extra {
		if !hasField(fields, name) {
			out = append(out, name)
		}
	}
	return out
}

// Humanize turns a field name into a label: "total_assets" and
// "totalAssets" both become "Total assets".
func Humanize(field string) string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}
	runes := []rune(field)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || unicode.IsSpace(r):
			flush()
		case unicode.IsUpper(r) && i > 0 && !unicode.IsUpper(runes[i-1]):
			flush()
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
	}
	flush()
	if len(words) == 0 {
		return ""
	}
	out := []rune(strings.Join(words, " "))
	out[0] = unicode.ToUpper(out[0])
	return string(out)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// noun is the lower-case singular or plural name of def's records for n.
func noun(def core.DatasetDefinition, n int) string {
	return plural(n, strings.ToLower(def.Singular), strings.ToLower(def.Label))
}

func firstValue(r record.Record, fields ...string) string {
	for _, f := range fields {
		if v := r.Value(f); v != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[:n])) + "…"
}

func inputType(k core.FieldKind) string {
	if k == core.FieldURL {
		return "url"
	}
	return "text"
}

func inputID(name string) string {
	return "f-" + name
}

func requiredMark(f core.FormField) string {
	if f.Required {
		return " *"
	}
	return ""
}

func hasField(fields []core.FormField, name string) bool {
	return slices.ContainsFunc(fields, func(f core.FormField) bool { return f.Name == name })
}
