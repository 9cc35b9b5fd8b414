// Package config loads the directory's settings from environment variables.
// Defaults are applied for unset values and the result is validated on
// startup so a misconfigured deployment fails before serving traffic.
package config

import (
	"strconv"
	"time"
)

// Backend names accepted by DATA_BACKEND and OVERLAY_BACKEND.
const (
	BackendCSV      = "csv"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
	BackendFile     = "file"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Data     DataConfig
	Database DatabaseConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Notify   NotifyConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	// BasePath is the URL prefix the app is mounted under, e.g. /bondweb (default: none)
	BasePath string `env:"SERVER_BASE_PATH"`

	// ReadTimeout is the maximum duration for reading a request (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing a response (default: 30s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 30s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"30s"`
}

// DataConfig selects where records come from and where local edits live.
type DataConfig struct {
	// Dir is the local directory holding the tabular source files (default: data)
	Dir string `env:"DATA_DIR" default:"data"`

	// BaseURL, when set, makes sources load over HTTP(S) from this prefix instead of Dir
	BaseURL string `env:"DATA_BASE_URL"`

	// Backend is the record source for editable datasets: csv or postgres (default: csv)
	Backend string `env:"DATA_BACKEND" default:"csv"`

	// OverlayBackend stores local edits: memory, file or postgres (default: file)
	OverlayBackend string `env:"OVERLAY_BACKEND" default:"file"`

	// OverlayDir is where the file overlay backend writes its state (default: .edits)
	OverlayDir string `env:"OVERLAY_DIR" default:".edits"`

	// FetchTimeout bounds a single source retrieval (default: 15s)
	FetchTimeout time.Duration `env:"DATA_FETCH_TIMEOUT" default:"15s"`

	// ClearTimeout bounds a clear-all-edits operation (default: 30s)
	ClearTimeout time.Duration `env:"DATA_CLEAR_TIMEOUT" default:"30s"`

	// AuditSize is how many audit entries are retained in memory (default: 500)
	AuditSize int `env:"DATA_AUDIT_SIZE" default:"500"`
}

// DatabaseConfig holds database connection settings.
// Only needed when a postgres backend is selected.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 120)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"120"`

	// LoginLimit is requests per minute for the login endpoint (default: 10)
	LoginLimit int `env:"RATE_LIMIT_LOGIN" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// AdminPassword unlocks the admin panel; empty disables password login
	AdminPassword string `env:"ADMIN_PASSWORD" envAlt:"VITE_ADMIN_PASSWORD"`

	// APIKeys are accepted in the X-API-Key header for editor API calls
	APIKeys []string `env:"API_KEYS"`

	// SessionTTL is how long an admin session stays valid (default: 24h)
	SessionTTL time.Duration `env:"SESSION_TTL" default:"24h"`

	// SecureCookies marks the session cookie Secure (default: false)
	SecureCookies bool `env:"SECURE_COOKIES" default:"false"`

	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// NotifyConfig configures delivery of "request an institution" submissions.
type NotifyConfig struct {
	// FormspreeID is the Formspree form id; takes precedence over EmailAPIURL
	FormspreeID string `env:"FORMSPREE_ID" envAlt:"VITE_FORMSPREE_ID"`

	// EmailAPIURL is a serverless endpoint accepting a JSON email request
	EmailAPIURL string `env:"EMAIL_API_URL" envAlt:"VITE_EMAIL_API_URL"`

	// AdminEmail receives requests sent through EmailAPIURL
	AdminEmail string `env:"ADMIN_EMAIL" envAlt:"VITE_ADMIN_EMAIL"`

	// Timeout bounds a single delivery attempt (default: 10s)
	Timeout time.Duration `env:"NOTIFY_TIMEOUT" default:"10s"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	if c.Host == "" {
		return ":" + strconv.Itoa(c.Port)
	}
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// NeedsDatabase reports whether any configured backend requires DATABASE_URL.
func (c *Config) NeedsDatabase() bool {
	return c.Data.Backend == BackendPostgres || c.Data.OverlayBackend == BackendPostgres
}
