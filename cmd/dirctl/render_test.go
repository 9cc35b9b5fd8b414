package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/JonMunkholm/bondweb/internal/core"
	"github.com/JonMunkholm/bondweb/internal/record"
)

var testDef = core.DatasetDefinition{
	Key:        "institutions",
	Label:      "Institutions",
	Singular:   "Institution",
	CardFields: []string{"country"},
	FormFields: []core.FormField{
		{Name: "id", Label: "ID"},
		{Name: "name", Label: "Name"},
		{Name: "website", Label: "Website"},
	},
}

func TestRecordMarkdown(t *testing.T) {
	r := record.New(
		"id", "7", "name", "Alpha", "description", "A **bank**.",
		"website", "https://alpha.example", "rating", "A|B", "empty", "",
	)

	got := recordMarkdown(testDef, r)

	for _, want := range []string{
		"# Alpha\n",
		"Institution `7`",
		"A **bank**.",
		"| Website | https://alpha.example |",
		`| rating | A\|B |`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("markdown missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "empty") {
		t.Error("empty fields should be skipped")
	}
}

func TestRecordMarkdown_NoID(t *testing.T) {
	got := recordMarkdown(testDef, record.New("name", "Kingdom of Norway"))
	if !strings.HasPrefix(got, "# Kingdom of Norway\n") || strings.Contains(got, "`") || strings.Contains(got, "| Field") {
		t.Errorf("recordMarkdown() = %q", got)
	}
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	records := []record.Record{
		record.New("id", "1", "name", "Alpha", "country", "Norway"),
		record.New("name", "Kingdom of Norway", "country", "Norway"),
	}
	if err := writeTable(&buf, testDef, records); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "KEY") || !strings.Contains(lines[0], "COUNTRY") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[2], "kingdom-of-norway") {
		t.Errorf("id-less rows should be keyed by name slug: %q", lines[2])
	}
}

func TestCell(t *testing.T) {
	if got := cell("two\nlines  here"); got != "two lines here" {
		t.Errorf("cell() = %q", got)
	}
	long := strings.Repeat("x", 60)
	if got := []rune(cell(long)); len(got) != 48 {
		t.Errorf("cell(long) has %d runes, want 48", len(got))
	}
}

func TestPrintMarkdown(t *testing.T) {
	var buf bytes.Buffer
	if err := printMarkdown(&buf, "# Title\n\nbody text\n"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "body text") {
		t.Errorf("rendered output lost the body: %q", buf.String())
	}
}
