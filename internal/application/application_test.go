package application

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/JonMunkholm/bondweb/internal/config"
	"github.com/JonMunkholm/bondweb/internal/overlay"
)

func TestOverlayBackends(t *testing.T) {
	dir := t.TempDir()

	mem := OverlayBackends(config.DataConfig{OverlayBackend: config.BackendMemory}, nil)
	if _, ok := mem("institutions").(*overlay.MemoryBackend); !ok {
		t.Errorf("memory backend = %T", mem("institutions"))
	}

	file := OverlayBackends(config.DataConfig{OverlayBackend: config.BackendFile, OverlayDir: dir}, nil)
	fb, ok := file("institutions").(*overlay.FileBackend)
	if !ok {
		t.Fatalf("file backend = %T", file("institutions"))
	}
	if filepath.Dir(fb.Path()) != dir {
		t.Errorf("Path() = %s, want under %s", fb.Path(), dir)
	}

	pg := OverlayBackends(config.DataConfig{OverlayBackend: config.BackendPostgres}, nil)
	if _, ok := pg("institutions").(*overlay.PostgresBackend); !ok {
		t.Errorf("postgres backend = %T", pg("institutions"))
	}
}

func TestNew_WithoutDatabase(t *testing.T) {
	cfg := &config.Config{Data: config.DataConfig{
		Dir:            t.TempDir(),
		Backend:        config.BackendCSV,
		OverlayBackend: config.BackendMemory,
	}}

	app, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer app.Close()

	if len(app.Service.Datasets()) == 0 {
		t.Error("datasets should be registered")
	}
	if app.Service.Backend("institutions") != config.BackendCSV {
		t.Errorf("Backend(institutions) = %q", app.Service.Backend("institutions"))
	}
	if _, err := app.Registry.Gather(); err != nil {
		t.Errorf("Gather() error = %v", err)
	}
}
