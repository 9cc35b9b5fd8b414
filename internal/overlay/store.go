package overlay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/JonMunkholm/bondweb/internal/record"
)

// ErrEmptyFieldName is returned when a field name is blank after trimming.
var ErrEmptyFieldName = errors.New("field name is required")

// Backend persists one overlay blob. Load returns (nil, nil) when nothing
// has been saved yet. Save replaces the stored blob entirely.
type Backend interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

// Store is the edit overlay for one dataset.
type Store struct {
	name    string
	backend Backend
	mu      sync.Mutex
}

// NewStore returns a store named name (used in logs) over backend.
func NewStore(name string, backend Backend) *Store {
	return &Store{name: name, backend: backend}
}

// Name returns the dataset key the store belongs to.
func (s *Store) Name() string {
	return s.name
}

// Get returns the current persisted overlay.
func (s *Store) Get(ctx context.Context) (Overlay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// AddRecord appends r to the pending additions. Uniqueness of r's id is
// the caller's responsibility.
func (s *Store) AddRecord(ctx context.Context, r record.Record) error {
	return s.mutate(ctx, "add_record", func(o *Overlay) bool {
		o.Additions = append(o.Additions, r.Clone())
		return true
	})
}

// UpdateRecord merges partial over the record with id. When id is a
// pending addition the addition itself is patched; otherwise the fields
// are merged into the modification for id. The id field of partial is
// ignored so identity never changes.
func (s *Store) UpdateRecord(ctx context.Context, id string, partial record.Record) error {
	patch := partial.Clone()
	patch.Delete(record.IDField)

	return s.mutate(ctx, "update_record", func(o *Overlay) bool {
		if i := o.AdditionIndex(id); i >= 0 {
			o.Additions[i] = o.Additions[i].Override(patch)
			return true
		}
		o.Modifications[id] = o.Modifications[id].Override(patch)
		return true
	})
}

// DeleteRecord removes id from the effective set. A pending addition is
// dropped outright; any other id is recorded once in the deletions and its
// pending modification discarded.
func (s *Store) DeleteRecord(ctx context.Context, id string) error {
	return s.mutate(ctx, "delete_record", func(o *Overlay) bool {
		if i := o.AdditionIndex(id); i >= 0 {
			o.Additions = slices.Delete(o.Additions, i, i+1)
			return true
		}
		delete(o.Modifications, id)
		if !o.IsDeleted(id) {
			o.Deletions = append(o.Deletions, id)
		}
		return true
	})
}

// AddField declares an extra field every record exposes. Adding a field
// that is already declared does nothing.
func (s *Store) AddField(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyFieldName
	}
	return s.mutate(ctx, "add_field", func(o *Overlay) bool {
		if slices.Contains(o.CustomFields, name) {
			return false
		}
		o.CustomFields = append(o.CustomFields, name)
		return true
	})
}

// RemoveField drops a declared field. Unknown names are ignored. Values
// already stored under the name in edited records are kept.
func (s *Store) RemoveField(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	return s.mutate(ctx, "remove_field", func(o *Overlay) bool {
		i := slices.Index(o.CustomFields, name)
		if i < 0 {
			return false
		}
		o.CustomFields = slices.Delete(o.CustomFields, i, i+1)
		return true
	})
}

// Clear discards every addition, modification, deletion and declared field
// in a single save.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.save(ctx, Empty()); err != nil {
		return err
	}
	slog.Info("overlay cleared", "dataset", s.name)
	return nil
}

// mutate loads the overlay, applies fn and saves the result. fn returns
// false when it left the overlay unchanged, in which case nothing is saved.
func (s *Store) mutate(ctx context.Context, op string, fn func(*Overlay) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, err := s.load(ctx)
	if err != nil {
		return err
	}
	if !fn(&o) {
		return nil
	}
	if err := s.save(ctx, o); err != nil {
		return err
	}
	slog.Debug("overlay saved", "dataset", s.name, "op", op)
	return nil
}

func (s *Store) load(ctx context.Context) (Overlay, error) {
	data, err := s.backend.Load(ctx)
	if err != nil {
		return Overlay{}, fmt.Errorf("load overlay %s: %w", s.name, err)
	}
	return Decode(s.name, data), nil
}

func (s *Store) save(ctx context.Context, o Overlay) error {
	data, err := Encode(o)
	if err != nil {
		return fmt.Errorf("encode overlay %s: %w", s.name, err)
	}
	if err := s.backend.Save(ctx, data); err != nil {
		return fmt.Errorf("save overlay %s: %w", s.name, err)
	}
	return nil
}

// Encode serialises an overlay as JSON.
func Encode(o Overlay) ([]byte, error) {
	o.normalize()
	return json.Marshal(o)
}

// Decode parses a persisted overlay. Missing or unreadable state yields an
// empty overlay; corruption is logged, never returned.
func Decode(name string, data []byte) Overlay {
	if len(strings.TrimSpace(string(data))) == 0 {
		return Empty()
	}
	var o Overlay
	if err := json.Unmarshal(data, &o); err != nil {
		slog.Warn("discarding unreadable overlay state", "dataset", name, "error", err)
		return Empty()
	}
	o.normalize()
	return o
}
