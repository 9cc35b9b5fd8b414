package config

import (
	"strings"
	"testing"
	"time"
)

// clearEnv blanks every variable the loader reads so tests see defaults.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"SERVER_HOST", "SERVER_PORT", "PORT", "SERVER_BASE_PATH",
		"DATA_DIR", "DATA_BASE_URL", "DATA_BACKEND", "OVERLAY_BACKEND", "OVERLAY_DIR",
		"DATABASE_URL", "DB_URL", "ADMIN_PASSWORD", "VITE_ADMIN_PASSWORD", "API_KEYS",
		"SESSION_TTL", "TRUSTED_PROXIES", "LOG_LEVEL", "LOG_FORMAT",
		"FORMSPREE_ID", "VITE_FORMSPREE_ID", "EMAIL_API_URL", "VITE_EMAIL_API_URL",
		"ADMIN_EMAIL", "VITE_ADMIN_EMAIL", "SERVER_READ_TIMEOUT", "DATA_FETCH_TIMEOUT",
	} {
		t.Setenv(name, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8080)
	}
	if cfg.Data.Backend != BackendCSV {
		t.Errorf("Data.Backend = %q, want %q", cfg.Data.Backend, BackendCSV)
	}
	if cfg.Data.OverlayBackend != BackendFile {
		t.Errorf("Data.OverlayBackend = %q, want %q", cfg.Data.OverlayBackend, BackendFile)
	}
	if cfg.Data.Dir != "data" {
		t.Errorf("Data.Dir = %q, want %q", cfg.Data.Dir, "data")
	}
	if cfg.Security.SessionTTL != 24*time.Hour {
		t.Errorf("Security.SessionTTL = %v, want %v", cfg.Security.SessionTTL, 24*time.Hour)
	}
	if cfg.NeedsDatabase() {
		t.Error("NeedsDatabase() = true with csv/file backends")
	}
}

func TestLoad_OverrideDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DATA_BACKEND", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SERVER_BASE_PATH", "bondweb/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9090)
	}
	if cfg.Data.Backend != BackendPostgres {
		t.Errorf("Data.Backend = %q, want %q", cfg.Data.Backend, BackendPostgres)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Server.BasePath != "/bondweb" {
		t.Errorf("Server.BasePath = %q, want %q", cfg.Server.BasePath, "/bondweb")
	}
}

func TestLoad_AltEnvVar(t *testing.T) {
	clearEnv(t)
	t.Setenv("OVERLAY_BACKEND", "postgres")
	t.Setenv("DB_URL", "postgres://localhost/alttest")
	t.Setenv("VITE_ADMIN_PASSWORD", "s3cret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.URL != "postgres://localhost/alttest" {
		t.Errorf("Database.URL = %q, want %q", cfg.Database.URL, "postgres://localhost/alttest")
	}
	if cfg.Security.AdminPassword != "s3cret" {
		t.Errorf("Security.AdminPassword = %q, want %q", cfg.Security.AdminPassword, "s3cret")
	}
}

func TestLoad_PostgresWithoutURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATA_BACKEND", "postgres")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() expected error for postgres backend without DATABASE_URL")
	}
	if !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Errorf("error %q should mention DATABASE_URL", err)
	}
}

func TestLoad_Duration(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_READ_TIMEOUT", "45s")
	t.Setenv("DATA_FETCH_TIMEOUT", "1m30s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.ReadTimeout != 45*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want %v", cfg.Server.ReadTimeout, 45*time.Second)
	}
	if cfg.Data.FetchTimeout != 90*time.Second {
		t.Errorf("Data.FetchTimeout = %v, want %v", cfg.Data.FetchTimeout, 90*time.Second)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("SESSION_TTL", "tomorrow")

	if _, err := Load(); err == nil {
		t.Fatal("Load() expected error for invalid duration")
	}
}

func TestLoad_CommaSeparatedSlice(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_KEYS", "key-one, key-two , ,key-three")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	expected := []string{"key-one", "key-two", "key-three"}
	if len(cfg.Security.APIKeys) != len(expected) {
		t.Fatalf("APIKeys length = %d, want %d", len(cfg.Security.APIKeys), len(expected))
	}
	for i, v := range expected {
		if cfg.Security.APIKeys[i] != v {
			t.Errorf("APIKeys[%d] = %q, want %q", i, cfg.Security.APIKeys[i], v)
		}
	}
}

func validConfig() *Config {
	return &Config{
		Server:   ServerConfig{Port: 8080, ShutdownTimeout: time.Second},
		Data:     DataConfig{Dir: "data", Backend: BackendCSV, OverlayBackend: BackendMemory, FetchTimeout: time.Second, ClearTimeout: time.Second, AuditSize: 10},
		Database: DatabaseConfig{MaxConns: 10, MinConns: 1},
		Rate:     RateLimitConfig{Enabled: true, RequestsPerMinute: 100, LoginLimit: 5},
		Security: SecurityConfig{SessionTTL: time.Hour},
		Logging:  LoggingConfig{Level: "info", Format: "text"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"invalid port", func(c *Config) { c.Server.Port = 99999 }, "SERVER_PORT"},
		{"unknown backend", func(c *Config) { c.Data.Backend = "sqlite" }, "DATA_BACKEND"},
		{"unknown overlay backend", func(c *Config) { c.Data.OverlayBackend = "redis" }, "OVERLAY_BACKEND"},
		{"file overlay without dir", func(c *Config) { c.Data.OverlayBackend = BackendFile }, "OVERLAY_DIR"},
		{"base url not http", func(c *Config) { c.Data.BaseURL = "ftp://example.com" }, "DATA_BASE_URL"},
		{"webhook without admin email", func(c *Config) { c.Notify.EmailAPIURL = "https://mail.example.com" }, "ADMIN_EMAIL"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "LOG_LEVEL"},
		{"max below min conns", func(c *Config) { c.Database.MinConns = 20 }, "DB_MAX_CONNS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error mentioning %s", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	cfg.Logging.Format = "xml"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error")
	}
	for _, want := range []string{"SERVER_PORT", "LOG_FORMAT"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %s", err, want)
		}
	}
}

func TestServerConfig_Addr(t *testing.T) {
	tests := []struct {
		host string
		port int
		want string
	}{
		{"0.0.0.0", 8080, "0.0.0.0:8080"},
		{"", 3000, ":3000"},
		{"localhost", 0, "localhost:0"},
	}
	for _, tt := range tests {
		c := ServerConfig{Host: tt.host, Port: tt.port}
		if got := c.Addr(); got != tt.want {
			t.Errorf("Addr() = %q, want %q", got, tt.want)
		}
	}
}

func TestConfig_StringMasksSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.Database.URL = "postgres://user:hunter2@db/app"
	cfg.Security.AdminPassword = "hunter2"

	s := cfg.String()
	if strings.Contains(s, "hunter2") {
		t.Errorf("String() leaked a secret: %s", s)
	}
}
