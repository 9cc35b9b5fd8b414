// Package application wires configuration to the directory's backends. The
// server and the dirctl command build the same Service through it.
package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/JonMunkholm/bondweb/internal/admin"
	"github.com/JonMunkholm/bondweb/internal/config"
	"github.com/JonMunkholm/bondweb/internal/core"
	_ "github.com/JonMunkholm/bondweb/internal/core/datasets" // register datasets
	"github.com/JonMunkholm/bondweb/internal/database"
	"github.com/JonMunkholm/bondweb/internal/gateway"
	"github.com/JonMunkholm/bondweb/internal/overlay"
)

// App holds the constructed backends.
type App struct {
	Config   *config.Config
	Service  *core.Service
	Resetter *admin.Resetter
	Registry *prometheus.Registry

	pool *pgxpool.Pool
}

// New connects to Postgres when a backend needs it and builds the service.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{Config: cfg, Registry: prometheus.NewRegistry()}
	app.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var (
		db database.DBTX
		gw gateway.Gateway
	)
	if cfg.NeedsDatabase() {
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		app.pool, db = pool, pool
		if cfg.Data.Backend == config.BackendPostgres {
			gw = gateway.NewPostgres(pool)
		}
	}

	svc, err := core.NewService(core.Options{
		Data:       cfg.Data,
		Overlays:   OverlayBackends(cfg.Data, db),
		Gateway:    gw,
		Registerer: app.Registry,
	})
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("create service: %w", err)
	}
	app.Service = svc
	app.Resetter = admin.NewResetter(svc, cfg.Data.ClearTimeout)

	slog.Info("datasets registered",
		"count", core.Count(),
		"data_backend", cfg.Data.Backend,
		"overlay_backend", cfg.Data.OverlayBackend,
	)
	return app, nil
}

// Close releases the database pool, if any.
func (a *App) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

// OverlayBackends returns the factory for per-dataset overlay storage
// selected by data.OverlayBackend. db is only used by the postgres backend.
func OverlayBackends(data config.DataConfig, db database.DBTX) func(key string) overlay.Backend {
	switch data.OverlayBackend {
	case config.BackendMemory:
		return func(string) overlay.Backend { return overlay.NewMemoryBackend() }
	case config.BackendPostgres:
		return func(key string) overlay.Backend { return overlay.NewPostgresBackend(db, key) }
	default:
		return func(key string) overlay.Backend { return overlay.FileBackendFor(data.OverlayDir, key) }
	}
}
