// Package overlay keeps the local edits layered over a dataset's
// authoritative records: additions, per-id modifications, deletions and
// extra declared fields.
//
// A Store persists the whole Overlay as one blob through a Backend. Every
// mutation reloads the blob, applies the change and saves it again before
// returning, so readers always see the last durable state.
package overlay

import (
	"slices"

	"github.com/JonMunkholm/bondweb/internal/record"
)

// Overlay is the diff applied on top of an authoritative record set.
type Overlay struct {
	Additions     []record.Record          `json:"additions"`
	Modifications map[string]record.Record `json:"modifications"`
	Deletions     []string                 `json:"deletions"`
	CustomFields  []string                 `json:"customFields"`
}

// Empty returns an overlay with no edits and non-nil collections.
func Empty() Overlay {
	return Overlay{
		Additions:     []record.Record{},
		Modifications: map[string]record.Record{},
		Deletions:     []string{},
		CustomFields:  []string{},
	}
}

// IsEmpty reports whether the overlay holds no edits at all.
func (o Overlay) IsEmpty() bool {
	return len(o.Additions) == 0 && len(o.Modifications) == 0 &&
		len(o.Deletions) == 0 && len(o.CustomFields) == 0
}

// IsDeleted reports whether id is marked deleted.
func (o Overlay) IsDeleted(id string) bool {
	return slices.Contains(o.Deletions, id)
}

// AdditionIndex returns the index of the pending addition with id, or -1.
func (o Overlay) AdditionIndex(id string) int {
	return slices.IndexFunc(o.Additions, func(r record.Record) bool { return r.ID() == id })
}

// Clone returns a deep copy.
func (o Overlay) Clone() Overlay {
	c := Empty()
	for _, r := range o.Additions {
		c.Additions = append(c.Additions, r.Clone())
	}
	for id, r := range o.Modifications {
		c.Modifications[id] = r.Clone()
	}
	c.Deletions = append(c.Deletions, o.Deletions...)
	c.CustomFields = append(c.CustomFields, o.CustomFields...)
	return c
}

// Counts summarises the overlay for display.
type Counts struct {
	Additions     int `json:"additions"`
	Modifications int `json:"modifications"`
	Deletions     int `json:"deletions"`
	CustomFields  int `json:"customFields"`
}

// Counts returns the number of entries of each kind.
func (o Overlay) Counts() Counts {
	return Counts{
		Additions:     len(o.Additions),
		Modifications: len(o.Modifications),
		Deletions:     len(o.Deletions),
		CustomFields:  len(o.CustomFields),
	}
}

// normalize replaces nil collections so callers and encoders see empty ones.
func (o *Overlay) normalize() {
	if o.Additions == nil {
		o.Additions = []record.Record{}
	}
	if o.Modifications == nil {
		o.Modifications = map[string]record.Record{}
	}
	if o.Deletions == nil {
		o.Deletions = []string{}
	}
	if o.CustomFields == nil {
		o.CustomFields = []string{}
	}
}
