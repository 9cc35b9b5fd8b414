package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/bondweb/internal/application"
	"github.com/JonMunkholm/bondweb/internal/auth"
	"github.com/JonMunkholm/bondweb/internal/config"
	"github.com/JonMunkholm/bondweb/internal/logging"
	"github.com/JonMunkholm/bondweb/internal/notify"
	"github.com/JonMunkholm/bondweb/internal/web"
)

// sweepInterval is how often expired admin sessions are dropped.
const sweepInterval = 10 * time.Minute

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"base_path", cfg.Server.BasePath,
		"data_dir", cfg.Data.Dir,
		"data_base_url", cfg.Data.BaseURL,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"login_enabled", cfg.Security.AdminPassword != "",
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := application.New(ctx, cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	sessions := auth.NewSessionStore(cfg.Security.SessionTTL)
	go sessions.RunSweeper(ctx, sweepInterval)

	sender := notify.FromConfig(cfg.Notify)
	slog.Info("institution requests", "sender", sender.Name())

	server := web.NewServer(cfg, web.Deps{
		Service:  app.Service,
		Auth:     auth.New(cfg.Security, cfg.Server.BasePath, sessions),
		Sender:   sender,
		Resetter: app.Resetter,
		Gatherer: app.Registry,
	})

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-ctx.Done()
		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-drained
	slog.Info("server stopped")
}
