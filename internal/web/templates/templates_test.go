package templates

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/bondweb/internal/core"
	"github.com/JonMunkholm/bondweb/internal/record"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	return buf.String()
}

var institutions = core.DatasetDefinition{
	Key:          "institutions",
	Label:        "Institutions",
	Singular:     "Institution",
	SearchFields: []string{"name", "country"},
	CardFields:   []string{"category", "country"},
	DetailFields: []string{"id", "name", "category", "country", "description", "website", "image_url"},
	FormFields: []core.FormField{
		{Name: "id", Label: "ID", Required: true},
		{Name: "name", Label: "Name", Required: true},
		{Name: "description", Label: "Description", Kind: core.FieldTextarea},
	},
}

func TestHumanize(t *testing.T) {
	tests := map[string]string{
		"total_assets": "Total assets",
		"keyData":      "Key data",
		"image_url":    "Image url",
		"country":      "Country",
		"":             "",
	}
	for in, want := range tests {
		if got := Humanize(in); got != want {
			t.Errorf("Humanize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNavURL(t *testing.T) {
	tests := []struct {
		base string
		segs []string
		want string
	}{
		{"", nil, "/"},
		{"", []string{"institutions", "a b"}, "/institutions/a%20b"},
		{"/bondweb/", []string{"admin"}, "/bondweb/admin"},
		{"/bondweb", nil, "/bondweb"},
	}
	for _, tt := range tests {
		if got := (Nav{BasePath: tt.base}).URL(tt.segs...); got != tt.want {
			t.Errorf("URL(%q, %v) = %q, want %q", tt.base, tt.segs, got, tt.want)
		}
	}
}

func TestList_EscapesAndCounts(t *testing.T) {
	out := render(t, List(Nav{}, ListView{
		Def:     institutions,
		Records: []record.Record{record.New("id", "1", "name", "<b>Alpha</b>", "country", "Norway")},
		Total:   3,
		Query:   "nor",
	}))

	if strings.Contains(out, "<b>Alpha</b>") || !strings.Contains(out, "&lt;b&gt;Alpha&lt;/b&gt;") {
		t.Error("record values must be escaped")
	}
	if !strings.Contains(out, "1 of 3 institutions") {
		t.Errorf("missing count line in %s", out)
	}
	if !strings.Contains(out, `href="/institutions/1"`) {
		t.Error("missing detail link")
	}
}

func TestList_EmptyWithQuery(t *testing.T) {
	out := render(t, List(Nav{}, ListView{Def: institutions, Total: 2, Query: "zzz"}))
	if !strings.Contains(out, "No institutions found matching") || !strings.Contains(out, "Clear search") {
		t.Errorf("empty state missing: %s", out)
	}
}

func TestDetail(t *testing.T) {
	r := record.New(
		"id", "1", "name", "Alpha", "country", "Norway",
		"description", "A **large** bank <script>alert(1)</script>",
		"website", "javascript:alert(1)",
		"total_assets", "12.5", "rating", "",
	)
	out := render(t, Detail(Nav{}, DetailView{Def: institutions, Record: r}))

	if !strings.Contains(out, "<strong>large</strong>") {
		t.Error("description should be rendered as markdown")
	}
	if strings.Contains(out, "<script>") {
		t.Error("raw HTML in markdown must be dropped")
	}
	if strings.Contains(out, `href="javascript:`) {
		t.Error("unsafe website URL must be sanitized")
	}
	if !strings.Contains(out, "Total assets") || !strings.Contains(out, "12.5") {
		t.Error("extra non-empty fields should be listed with humanized labels")
	}
	if strings.Contains(out, "Rating") {
		t.Error("empty extra fields should be hidden")
	}
}

func TestAdmin_RerendersForm(t *testing.T) {
	out := render(t, Admin(Nav{IsEditor: true}, AdminView{
		Def:          institutions,
		Backend:      "csv",
		CustomFields: []string{"rating"},
		Form:         record.New("id", "9", "name", `Quote "Co"`, "description", "kept"),
		Error:        core.MapError(core.ConflictError{Dataset: "institutions", ID: "9"}),
	}))

	for _, want := range []string{
		`value="9"`,
		`value="Quote &#34;Co&#34;"`,
		">kept</textarea>",
		"CONF001",
		`action="/admin/institutions/fields/rating/delete"`,
		`name="rating"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("admin page missing %q", want)
		}
	}
}

func TestAdmin_PostgresHidesOverlayControls(t *testing.T) {
	out := render(t, Admin(Nav{}, AdminView{Def: institutions, Backend: "postgres"}))
	if strings.Contains(out, "Clear edits") || strings.Contains(out, "Custom fields") {
		t.Error("overlay controls shown for database backend")
	}
}

func TestErrorPage(t *testing.T) {
	msg := core.MapError(errors.New("boom"))
	out := render(t, ErrorPage(Nav{}, ErrorView{
		Title:    "Institutions",
		Message:  msg.Message,
		Code:     msg.Code,
		Location: "https://cdn.example/institutions.csv",
		RetryURL: "/institutions",
	}))
	if !strings.Contains(out, "https://cdn.example/institutions.csv") || !strings.Contains(out, "Retry") {
		t.Errorf("error page missing location or retry: %s", out)
	}
}

func TestMarkdown(t *testing.T) {
	got := Markdown("line one\nline two")
	if !strings.Contains(got, "<br") {
		t.Errorf("hard wraps not applied: %s", got)
	}
}

func TestLayout_WrapsChildren(t *testing.T) {
	nav := Nav{
		BasePath: "/bondweb",
		Datasets: []DatasetLink{{Key: "institutions", Label: "Institutions"}},
		Active:   "institutions",
		IsEditor: true,
	}
	page := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, "<p>page body</p>")
		return err
	})

	var buf bytes.Buffer
	ctx := templ.WithChildren(context.Background(), page)
	if err := Layout(nav, "Title & more").Render(ctx, &buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"<title>Title &amp; more | Financial Data Hub</title>",
		`<a href="/bondweb/institutions"><strong>Institutions</strong></a>`,
		`action="/bondweb/admin/logout"`,
		"<main><p>page body</p></main>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("layout missing %q in %s", want, out)
		}
	}
}

func TestEdit_FieldSet(t *testing.T) {
	out := render(t, Edit(Nav{IsEditor: true}, EditView{
		Def:          institutions,
		ID:           "7",
		Values:       record.New("id", "7", "name", "Alpha", "legacy", "x"),
		CustomFields: []string{"rating"},
	}))

	if strings.Contains(out, `name="id"`) {
		t.Error("id must not be editable")
	}
	for _, want := range []string{
		`action="/admin/institutions/records/7"`,
		`name="name" type="text" value="Alpha" placeholder="" required>`,
		`name="rating" value=""`,
		`name="legacy" value="x"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("edit page missing %q", want)
		}
	}
}
