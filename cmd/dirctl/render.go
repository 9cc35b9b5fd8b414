package main

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/glamour"

	"github.com/JonMunkholm/bondweb/internal/core"
	"github.com/JonMunkholm/bondweb/internal/record"
)

// wordWrap is the terminal width markdown is rendered to.
const wordWrap = 100

// writeTable prints one line per record: its key, name and card fields.
func writeTable(w io.Writer, def core.DatasetDefinition, records []record.Record) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	header := append([]string{"KEY", "NAME"}, upper(def.CardFields)...)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range records {
		row := []string{core.RecordKey(r), cell(r.Value(record.NameField))}
		for _, f := range def.CardFields {
			row = append(row, cell(r.Value(f)))
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func upper(fields []string) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = strings.ToUpper(f)
	}
	return out
}

// cell flattens a value onto one line and shortens it for table output.
func cell(v string) string {
	v = strings.Join(strings.Fields(v), " ")
	if r := []rune(v); len(r) > 48 {
		return string(r[:47]) + "…"
	}
	return v
}

// recordMarkdown renders r as a markdown document: the name as title, the
// description as body, and every other non-empty field in a table.
func recordMarkdown(def core.DatasetDefinition, r record.Record) string {
	var b strings.Builder
	name := r.Value(record.NameField)
	if name == "" {
		name = r.ID()
	}
	fmt.Fprintf(&b, "# %s\n\n", name)
	if id := r.ID(); id != "" {
		fmt.Fprintf(&b, "%s `%s`\n\n", def.Singular, id)
	}
	if d := strings.TrimSpace(r.Value("description")); d != "" {
		b.WriteString(d)
		b.WriteString("\n\n")
	}

	skip := []string{record.IDField, record.NameField, "description"}
	var rows []string
	for _, k := range r.Keys() {
		v := r.Value(k)
		if v == "" || slices.Contains(skip, k) {
			continue
		}
		rows = append(rows, fmt.Sprintf("| %s | %s |", label(def, k), tableEscape(v)))
	}
	if len(rows) > 0 {
		b.WriteString("| Field | Value |\n| --- | --- |\n")
		b.WriteString(strings.Join(rows, "\n"))
		b.WriteString("\n")
	}
	return b.String()
}

// label returns the form label of field, or the field name itself.
func label(def core.DatasetDefinition, field string) string {
	for _, f := range def.FormFields {
		if f.Name == field && f.Label != "" {
			return f.Label
		}
	}
	return field
}

func tableEscape(v string) string {
	v = strings.ReplaceAll(v, "|", `\|`)
	return strings.Join(strings.Fields(v), " ")
}

// printMarkdown renders md for the terminal, falling back to the plain
// source when rendering fails.
func printMarkdown(w io.Writer, md string) error {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wordWrap),
	)
	if err == nil {
		var out string
		if out, err = r.Render(md); err == nil {
			_, err = io.WriteString(w, out)
			return err
		}
	}
	_, werr := io.WriteString(w, md)
	return werr
}
