package core

import (
	"context"

	"github.com/JonMunkholm/bondweb/internal/overlay"
	"github.com/JonMunkholm/bondweb/internal/record"
)

// FieldKind selects the input rendered for a form field.
type FieldKind int

const (
	FieldText FieldKind = iota
	FieldURL
	FieldNumber
	FieldTextarea
)

// FormField describes one input of a dataset's add/edit form.
type FormField struct {
	Name        string    // Record field name
	Label       string    // Display label
	Kind        FieldKind // Input type
	Required    bool
	Placeholder string
}

// DatasetDefinition contains everything needed to present and edit one
// dataset.
type DatasetDefinition struct {
	Key      string // URL segment and overlay key: "institutions"
	Label    string // Plural display name: "Institutions"
	Singular string // "Institution"
	Summary  string // One-line description shown on the home page

	// Source is the file name of the authoritative table, resolved
	// against the configured data directory or base URL.
	Source string

	// Editable datasets accept mutations and carry an overlay.
	Editable bool

	// Remote datasets are served by the Postgres gateway when the
	// postgres data backend is selected.
	Remote bool

	SearchFields []string
	FormFields   []FormField

	// CardFields are shown under the name on list cards.
	CardFields []string

	// DetailFields are rendered in their own sections on the detail page
	// and skipped from the generic field list.
	DetailFields []string
}

// Catalog is the record backend for one dataset.
type Catalog interface {
	// Records returns the effective record set.
	Records(ctx context.Context) ([]record.Record, error)
	Create(ctx context.Context, r record.Record) error
	Update(ctx context.Context, id string, partial record.Record) error
	Delete(ctx context.Context, id string) error
	AddField(ctx context.Context, name string) error
	RemoveField(ctx context.Context, name string) error
	Clear(ctx context.Context) error
	Overlay(ctx context.Context) (overlay.Overlay, error)

	// Location names where records are read from, for error messages.
	Location() string
	// Kind is "csv" or "postgres".
	Kind() string
}

// DatasetStats summarises one dataset for the home page.
type DatasetStats struct {
	Definition DatasetDefinition
	Records    int
	Backend    string
	Pending    overlay.Counts
	Err        error
}
