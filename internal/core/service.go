package core

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JonMunkholm/bondweb/internal/config"
	"github.com/JonMunkholm/bondweb/internal/gateway"
	"github.com/JonMunkholm/bondweb/internal/overlay"
	"github.com/JonMunkholm/bondweb/internal/tabular"
)

// DefaultClearTimeout bounds clearing the edits of every dataset.
var DefaultClearTimeout = 30 * time.Second

// Options wires a Service to its backends.
type Options struct {
	Data config.DataConfig

	// Fetcher retrieves source files. Defaults to NewFetcher(nil).
	Fetcher *tabular.Fetcher

	// Overlays returns the overlay backend for a dataset key. Defaults to
	// an in-memory backend per dataset.
	Overlays func(key string) overlay.Backend

	// Gateway serves remote datasets when Data.Backend is postgres.
	Gateway gateway.Gateway

	// Registerer receives the service metrics. May be nil.
	Registerer prometheus.Registerer
}

// Service provides the directory's business logic to the web server and
// the CLI.
type Service struct {
	catalogs     map[string]Catalog
	journal      *Journal
	metrics      *Metrics
	clearTimeout time.Duration
}

// NewService builds a catalog for every registered dataset.
func NewService(opts Options) (*Service, error) {
	if opts.Fetcher == nil {
		opts.Fetcher = tabular.NewFetcher(nil)
	}
	if opts.Overlays == nil {
		opts.Overlays = func(string) overlay.Backend { return overlay.NewMemoryBackend() }
	}
	useGateway := opts.Data.Backend == config.BackendPostgres
	if useGateway && opts.Gateway == nil {
		return nil, errors.New("postgres data backend selected without a gateway")
	}

	s := &Service{
		catalogs:     make(map[string]Catalog),
		journal:      NewJournal(opts.Data.AuditSize),
		metrics:      NewMetrics(opts.Registerer),
		clearTimeout: opts.Data.ClearTimeout,
	}
	if s.clearTimeout <= 0 {
		s.clearTimeout = DefaultClearTimeout
	}

	for _, def := range All() {
		if def.Remote && def.Editable && useGateway {
			s.catalogs[def.Key] = &gatewayCatalog{gw: opts.Gateway}
			continue
		}
		c := &csvCatalog{
			location: SourceLocation(opts.Data, def.Source),
			fetcher:  opts.Fetcher,
			timeout:  opts.Data.FetchTimeout,
		}
		if def.Editable {
			c.store = overlay.NewStore(def.Key, opts.Overlays(def.Key))
		}
		s.catalogs[def.Key] = c
	}
	return s, nil
}

// SourceLocation resolves a dataset source file against the configured
// base URL or data directory.
func SourceLocation(data config.DataConfig, source string) string {
	if data.BaseURL != "" {
		return strings.TrimRight(data.BaseURL, "/") + "/" + source
	}
	return filepath.Join(data.Dir, source)
}

// Datasets returns all registered dataset definitions.
func (s *Service) Datasets() []DatasetDefinition {
	return All()
}

// Dataset returns the definition for key.
func (s *Service) Dataset(key string) (DatasetDefinition, error) {
	def, ok := Get(key)
	if !ok {
		return DatasetDefinition{}, fmt.Errorf("%w: %s", ErrUnknownDataset, key)
	}
	return def, nil
}

// Backend names the record backend serving key: "csv" or "postgres".
func (s *Service) Backend(key string) string {
	if c, ok := s.catalogs[key]; ok {
		return c.Kind()
	}
	return ""
}

// Location names where key's records are read from.
func (s *Service) Location(key string) string {
	if c, ok := s.catalogs[key]; ok {
		return c.Location()
	}
	return ""
}

// AuditLog returns up to limit journal entries, newest first.
func (s *Service) AuditLog(limit int) []AuditEntry {
	return s.journal.Entries(limit)
}

// ClearTimeout is the bound applied when clearing every dataset.
func (s *Service) ClearTimeout() time.Duration {
	return s.clearTimeout
}

func (s *Service) catalog(key string) (Catalog, DatasetDefinition, error) {
	def, err := s.Dataset(key)
	if err != nil {
		return nil, def, err
	}
	c, ok := s.catalogs[key]
	if !ok {
		// Registered after the service was built.
		return nil, def, fmt.Errorf("%w: %s", ErrUnknownDataset, key)
	}
	return c, def, nil
}
