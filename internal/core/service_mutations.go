package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JonMunkholm/bondweb/internal/logging"
	"github.com/JonMunkholm/bondweb/internal/record"
)

// Create adds r to a dataset. It does not check for an existing id; use
// CheckConflict first when that matters.
func (s *Service) Create(ctx context.Context, key string, r record.Record) error {
	c, def, err := s.editable(key)
	if err != nil {
		return err
	}

	r = trimmed(r)
	if err := validateRequired(def, r, true); err != nil {
		return err
	}
	if err := c.Create(ctx, r); err != nil {
		return s.failed(ctx, "create", key, r.ID(), err)
	}
	s.done(ctx, ActionCreate, key, r.ID(), "")
	return nil
}

// Update applies partial to the record with id. Only fields present in
// partial change; an id field in partial is ignored.
func (s *Service) Update(ctx context.Context, key, id string, partial record.Record) error {
	c, def, err := s.editable(key)
	if err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return ValidationError{Field: record.IDField, Message: "is required"}
	}

	partial = trimmed(partial)
	partial.Delete(record.IDField)
	if err := validateRequired(def, partial, false); err != nil {
		return err
	}
	if err := c.Update(ctx, id, partial); err != nil {
		return s.failed(ctx, "update", key, id, err)
	}
	s.done(ctx, ActionUpdate, key, id, "")
	return nil
}

// Delete removes the record with id from a dataset.
func (s *Service) Delete(ctx context.Context, key, id string) error {
	c, _, err := s.editable(key)
	if err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return ValidationError{Field: record.IDField, Message: "is required"}
	}
	if err := c.Delete(ctx, id); err != nil {
		return s.failed(ctx, "delete", key, id, err)
	}
	s.done(ctx, ActionDelete, key, id, "")
	return nil
}

// AddField declares a custom field present on every record of a dataset.
func (s *Service) AddField(ctx context.Context, key, name string) error {
	c, _, err := s.editable(key)
	if err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ValidationError{Field: "field", Message: "name is required"}
	}
	if err := c.AddField(ctx, name); err != nil {
		return s.failed(ctx, "add field", key, "", err)
	}
	s.done(ctx, ActionAddField, key, "", name)
	return nil
}

// RemoveField withdraws a custom field declaration. Values already stored
// on records are kept.
func (s *Service) RemoveField(ctx context.Context, key, name string) error {
	c, _, err := s.editable(key)
	if err != nil {
		return err
	}
	if err := c.RemoveField(ctx, name); err != nil {
		return s.failed(ctx, "remove field", key, "", err)
	}
	s.done(ctx, ActionRemoveField, key, "", name)
	return nil
}

// ClearEdits discards every pending local edit of a dataset.
func (s *Service) ClearEdits(ctx context.Context, key string) error {
	c, _, err := s.editable(key)
	if err != nil {
		return err
	}
	if err := c.Clear(ctx); err != nil {
		return s.failed(ctx, "clear edits", key, "", err)
	}
	s.done(ctx, ActionClearEdits, key, "", "")
	return nil
}

func (s *Service) editable(key string) (Catalog, DatasetDefinition, error) {
	c, def, err := s.catalog(key)
	if err != nil {
		return nil, def, err
	}
	if !def.Editable {
		return nil, def, ValidationError{Message: fmt.Sprintf("%s is read-only", def.Label)}
	}
	return c, def, nil
}

func (s *Service) done(ctx context.Context, action AuditAction, key, id, field string) {
	s.metrics.edit(key, action)
	s.journal.Record(ctx, action, key, id, field)
}

func (s *Service) failed(ctx context.Context, op, key, id string, err error) error {
	logging.FromContext(ctx).Error(op+" failed",
		slog.String("dataset", key),
		slog.String("record_id", id),
		slog.String("error", err.Error()),
	)
	return fmt.Errorf("%s %s: %w", op, key, err)
}

// validateRequired checks the required fields of def. On create every
// required field must be non-empty; on update only fields present in r are
// checked.
func validateRequired(def DatasetDefinition, r record.Record, create bool) error {
	if create && r.ID() == "" {
		return ValidationError{Field: record.IDField, Message: "is required"}
	}
	for _, f := range def.FormFields {
		if !f.Required || f.Name == record.IDField {
			continue
		}
		v, ok := r.Get(f.Name)
		if !ok && !create {
			continue
		}
		if v == "" {
			return ValidationError{Field: f.Name, Message: "is required"}
		}
	}
	return nil
}

func trimmed(r record.Record) record.Record {
	out := record.Record{}
	for _, k := range r.Keys() {
		out.Set(k, strings.TrimSpace(r.Value(k)))
	}
	return out
}
