package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/bondweb/internal/config"
	"github.com/JonMunkholm/bondweb/internal/logging"
	"github.com/JonMunkholm/bondweb/internal/overlay"
	"github.com/JonMunkholm/bondweb/internal/reconcile"
	"github.com/JonMunkholm/bondweb/internal/record"
)

// List returns the effective record set of a dataset.
func (s *Service) List(ctx context.Context, key string) ([]record.Record, error) {
	c, _, err := s.catalog(key)
	if err != nil {
		return nil, err
	}

	records, err := c.Records(ctx)
	s.metrics.load(key, err)
	if err != nil {
		logging.FromContext(ctx).Error("load dataset failed",
			slog.String("dataset", key),
			slog.String("location", c.Location()),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	if err := reconcile.CheckComplete(records); err != nil {
		logging.FromContext(ctx).Warn("incomplete record set", slog.String("dataset", key), slog.String("error", err.Error()))
	}
	return records, nil
}

// Search returns the records of a dataset matching query on its search
// fields, along with the size of the unfiltered set.
func (s *Service) Search(ctx context.Context, key, query string) ([]record.Record, int, error) {
	def, err := s.Dataset(key)
	if err != nil {
		return nil, 0, err
	}
	records, err := s.List(ctx, key)
	if err != nil {
		return nil, 0, err
	}

	matched := make([]record.Record, 0, len(records))
	for _, r := range records {
		if Matches(r, def.SearchFields, query) {
			matched = append(matched, r)
		}
	}
	return matched, len(records), nil
}

// Get returns the record whose id, or whose name slug when it has no id,
// equals id.
func (s *Service) Get(ctx context.Context, key, id string) (record.Record, error) {
	c, _, err := s.catalog(key)
	if err != nil {
		return record.Record{}, err
	}

	if g, ok := c.(recordGetter); ok {
		r, found, err := g.Get(ctx, id)
		if err != nil {
			return record.Record{}, err
		}
		if !found {
			return record.Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return r, nil
	}

	records, err := s.List(ctx, key)
	if err != nil {
		return record.Record{}, err
	}
	for _, r := range records {
		if r.ID() == id {
			return r, nil
		}
	}
	for _, r := range records {
		if r.ID() == "" && Slug(r.Value(record.NameField)) == id {
			return r, nil
		}
	}
	return record.Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// CheckConflict returns a ConflictError when id is already taken in the
// effective set of a dataset.
func (s *Service) CheckConflict(ctx context.Context, key, id string) error {
	records, err := s.List(ctx, key)
	if err != nil {
		return err
	}
	for _, r := range records {
		if r.ID() == id {
			return ConflictError{Dataset: key, ID: id}
		}
	}
	return nil
}

// Overlay returns the pending local edits of a dataset.
func (s *Service) Overlay(ctx context.Context, key string) (overlay.Overlay, error) {
	c, _, err := s.catalog(key)
	if err != nil {
		return overlay.Overlay{}, err
	}
	return c.Overlay(ctx)
}

// Export serialises the effective record set of a dataset as
// comma-delimited text.
func (s *Service) Export(ctx context.Context, key string) (string, error) {
	records, err := s.List(ctx, key)
	if err != nil {
		return "", err
	}
	return reconcile.Serialize(records), nil
}

// Stats summarises every dataset. Load failures are reported per dataset
// rather than failing the whole call.
func (s *Service) Stats(ctx context.Context) []DatasetStats {
	defs := All()
	out := make([]DatasetStats, 0, len(defs))
	for _, def := range defs {
		st := DatasetStats{Definition: def, Backend: s.Backend(def.Key)}
		records, err := s.List(ctx, def.Key)
		if err != nil {
			st.Err = err
			out = append(out, st)
			continue
		}
		st.Records = len(records)
		if def.Editable && st.Backend == config.BackendCSV {
			if ov, err := s.Overlay(ctx, def.Key); err == nil {
				st.Pending = ov.Counts()
			}
		}
		out = append(out, st)
	}
	return out
}
