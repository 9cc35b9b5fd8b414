// Package admin provides administrative operations across datasets.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/JonMunkholm/bondweb/internal/config"
	"github.com/JonMunkholm/bondweb/internal/core"
	"github.com/JonMunkholm/bondweb/internal/logging"
)

// ResetTimeout is the default bound for clearing all datasets.
const ResetTimeout = 30 * time.Second

// Clearer discards the local edits of one dataset.
type Clearer interface {
	Datasets() []core.DatasetDefinition
	Backend(key string) string
	ClearEdits(ctx context.Context, key string) error
}

// Resetter clears the local edits of every editable csv dataset.
type Resetter struct {
	svc     Clearer
	timeout time.Duration
}

// NewResetter returns a Resetter bounded by timeout, or ResetTimeout when
// timeout is zero.
func NewResetter(svc Clearer, timeout time.Duration) *Resetter {
	if timeout <= 0 {
		timeout = ResetTimeout
	}
	return &Resetter{svc: svc, timeout: timeout}
}

// ResetAll clears every dataset it can and returns the keys cleared. It
// keeps going after a failure and reports all failures together.
// This is a destructive operation - use with caution.
func (r *Resetter) ResetAll(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var (
		cleared []string
		errs    []error
	)
	for _, def := range r.svc.Datasets() {
		if !def.Editable || r.svc.Backend(def.Key) != config.BackendCSV {
			continue
		}
		if err := r.svc.ClearEdits(ctx, def.Key); err != nil {
			errs = append(errs, fmt.Errorf("clear %s: %w", def.Key, err))
			continue
		}
		cleared = append(cleared, def.Key)
	}

	logging.FromContext(ctx).Info("cleared local edits",
		slog.Any("datasets", cleared),
		slog.Int("failures", len(errs)),
	)
	return cleared, errors.Join(errs...)
}
