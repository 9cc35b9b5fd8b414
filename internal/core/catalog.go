package core

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/bondweb/internal/config"
	"github.com/JonMunkholm/bondweb/internal/gateway"
	"github.com/JonMunkholm/bondweb/internal/overlay"
	"github.com/JonMunkholm/bondweb/internal/reconcile"
	"github.com/JonMunkholm/bondweb/internal/record"
	"github.com/JonMunkholm/bondweb/internal/tabular"
)

// csvCatalog reads a delimited source file and layers the local overlay
// on top. Read-only datasets have a nil store.
type csvCatalog struct {
	location string
	fetcher  *tabular.Fetcher
	store    *overlay.Store
	timeout  time.Duration
}

func (c *csvCatalog) Records(ctx context.Context) ([]record.Record, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	base, err := c.fetcher.Load(ctx, c.location)
	if err != nil {
		return nil, err
	}
	ov, err := c.Overlay(ctx)
	if err != nil {
		return nil, err
	}
	return reconcile.Merge(base, ov), nil
}

func (c *csvCatalog) Create(ctx context.Context, r record.Record) error {
	if c.store == nil {
		return ErrUnsupported
	}
	return c.store.AddRecord(ctx, r)
}

func (c *csvCatalog) Update(ctx context.Context, id string, partial record.Record) error {
	if c.store == nil {
		return ErrUnsupported
	}
	return c.store.UpdateRecord(ctx, id, partial)
}

func (c *csvCatalog) Delete(ctx context.Context, id string) error {
	if c.store == nil {
		return ErrUnsupported
	}
	return c.store.DeleteRecord(ctx, id)
}

func (c *csvCatalog) AddField(ctx context.Context, name string) error {
	if c.store == nil {
		return ErrUnsupported
	}
	return c.store.AddField(ctx, name)
}

func (c *csvCatalog) RemoveField(ctx context.Context, name string) error {
	if c.store == nil {
		return ErrUnsupported
	}
	return c.store.RemoveField(ctx, name)
}

func (c *csvCatalog) Clear(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	return c.store.Clear(ctx)
}

func (c *csvCatalog) Overlay(ctx context.Context) (overlay.Overlay, error) {
	if c.store == nil {
		return overlay.Empty(), nil
	}
	return c.store.Get(ctx)
}

func (c *csvCatalog) Location() string { return c.location }
func (c *csvCatalog) Kind() string     { return config.BackendCSV }

// gatewayCatalog serves a dataset straight from the database. Edits are
// written through; there is no overlay.
type gatewayCatalog struct {
	gw gateway.Gateway
}

func (g *gatewayCatalog) Records(ctx context.Context) ([]record.Record, error) {
	records, err := g.gw.List(ctx)
	if err != nil {
		return nil, err
	}
	// Custom fields differ per row, so complete the field union.
	return reconcile.Merge(records, overlay.Overlay{}), nil
}

// Get looks up a single row without listing the table.
func (g *gatewayCatalog) Get(ctx context.Context, id string) (record.Record, bool, error) {
	return g.gw.GetByID(ctx, id)
}

func (g *gatewayCatalog) Create(ctx context.Context, r record.Record) error {
	return g.gw.Create(ctx, r)
}

func (g *gatewayCatalog) Update(ctx context.Context, id string, partial record.Record) error {
	return g.gw.Update(ctx, id, partial)
}

func (g *gatewayCatalog) Delete(ctx context.Context, id string) error {
	return g.gw.Delete(ctx, id)
}

func (g *gatewayCatalog) AddField(context.Context, string) error {
	return fmt.Errorf("add field: %w", ErrUnsupported)
}

func (g *gatewayCatalog) RemoveField(context.Context, string) error {
	return fmt.Errorf("remove field: %w", ErrUnsupported)
}

func (g *gatewayCatalog) Clear(context.Context) error {
	return fmt.Errorf("clear edits: %w", ErrUnsupported)
}

func (g *gatewayCatalog) Overlay(context.Context) (overlay.Overlay, error) {
	return overlay.Overlay{}, fmt.Errorf("overlay: %w", ErrUnsupported)
}

func (g *gatewayCatalog) Location() string { return config.BackendPostgres }
func (g *gatewayCatalog) Kind() string     { return config.BackendPostgres }

// recordGetter is implemented by catalogs that can fetch one record
// directly.
type recordGetter interface {
	Get(ctx context.Context, id string) (record.Record, bool, error)
}
