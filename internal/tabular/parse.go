// Package tabular reads and writes the delimited text files datasets are
// published as.
//
// Parsing is lenient: malformed rows are padded or truncated to the header
// rather than rejected, so Parse never fails. Only retrieval can fail, with
// a *LoadError.
package tabular

import (
	"strings"

	"github.com/JonMunkholm/bondweb/internal/record"
)

const (
	Comma     = ','
	Semicolon = ';'
)

// DetectDelimiter returns ';' when the first line of text contains a
// semicolon and ',' otherwise. Later lines are never consulted.
func DetectDelimiter(text string) byte {
	first := text
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		first = text[:i]
	}
	if strings.IndexByte(first, Semicolon) >= 0 {
		return Semicolon
	}
	return Comma
}

// Parse converts delimited text into records keyed by the header row.
//
// The header is the first non-blank line; its names are trimmed. Rows
// shorter than the header get "" for the missing fields and extra fields
// are dropped. Whitespace-only lines are skipped. Unquoted values are
// trimmed; quoted values are kept verbatim, with "" read as a literal quote
// and delimiters or line breaks inside quotes kept in the value.
func Parse(text string) []record.Record {
	text = strings.TrimPrefix(text, "\ufeff")

	rows := splitRows(text, DetectDelimiter(text))
	if len(rows) == 0 {
		return nil
	}

	header := rows[0]
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	out := make([]record.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		var r record.Record
		for i, name := range header {
			v := ""
			if i < len(row) {
				v = row[i]
			}
			r.Set(name, v)
		}
		out = append(out, r)
	}
	return out
}

// splitRows tokenizes text into rows of fields, skipping blank rows. Rows
// end at "\n" or "\r\n" outside quotes; line breaks inside quotes are kept
// as written.
func splitRows(text string, delim byte) [][]string {
	var (
		rows     [][]string
		row      []string
		field    strings.Builder
		tail     strings.Builder // whitespace after a closing quote
		quoted   bool
		inQuotes bool
		content  bool
	)

	endField := func() {
		v := field.String()
		if !quoted {
			v = strings.TrimSpace(v)
		}
		row = append(row, v)
		field.Reset()
		tail.Reset()
		quoted = false
	}
	endRow := func() {
		endField()
		if content {
			rows = append(rows, row)
		}
		row = nil
		content = false
	}

	for i := 0; i < len(text); i++ {
		c := text[i]

		if inQuotes {
			if c == '"' {
				if i+1 < len(text) && text[i+1] == '"' {
					field.WriteByte('"')
					i++
				} else {
					inQuotes = false
				}
				continue
			}
			field.WriteByte(c)
			continue
		}

		switch {
		case c == '"':
			content = true
			if !quoted && strings.TrimSpace(field.String()) == "" {
				field.Reset()
			}
			field.WriteString(tail.String())
			tail.Reset()
			quoted = true
			inQuotes = true
		case c == delim:
			content = true
			endField()
		case c == '\n':
			endRow()
		case c == '\r' && i+1 < len(text) && text[i+1] == '\n':
			endRow()
			i++
		case c == ' ' || c == '\t' || c == '\r':
			if quoted {
				tail.WriteByte(c)
			} else {
				field.WriteByte(c)
			}
		default:
			content = true
			if quoted {
				field.WriteString(tail.String())
				tail.Reset()
			}
			field.WriteByte(c)
		}
	}
	endRow()

	return rows
}

// QuoteField renders value for output with the given delimiter. Values
// containing the delimiter, a quote, a line break, or surrounding
// whitespace are wrapped in quotes with inner quotes doubled.
func QuoteField(value string, delim byte) string {
	if !needsQuotes(value, delim) {
		return value
	}
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func needsQuotes(value string, delim byte) bool {
	if value == "" {
		return false
	}
	if strings.IndexByte(value, delim) >= 0 || strings.ContainsAny(value, "\"\n\r") {
		return true
	}
	return strings.TrimSpace(value) != value
}

// FormatRow joins fields into one output line using QuoteField. A row
// holding a single empty value is written as "" so it never reads back as a
// blank line.
func FormatRow(fields []string, delim byte) string {
	if len(fields) == 1 && fields[0] == "" {
		return `""`
	}
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(delim)
		}
		b.WriteString(QuoteField(f, delim))
	}
	return b.String()
}
