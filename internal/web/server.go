// Package web serves the directory: public pages, the admin panel and the
// JSON API.
package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/bondweb/internal/admin"
	"github.com/JonMunkholm/bondweb/internal/auth"
	"github.com/JonMunkholm/bondweb/internal/config"
	"github.com/JonMunkholm/bondweb/internal/core"
	"github.com/JonMunkholm/bondweb/internal/logging"
	"github.com/JonMunkholm/bondweb/internal/notify"
	"github.com/JonMunkholm/bondweb/internal/web/middleware"
	"github.com/JonMunkholm/bondweb/internal/web/templates"
)

// maxBodyBytes bounds JSON and form request bodies.
const maxBodyBytes = 1 << 20

// Deps are the collaborators the server calls into.
type Deps struct {
	Service  *core.Service
	Auth     *auth.Authenticator
	Sender   notify.Sender
	Resetter *admin.Resetter

	// Gatherer backs /metrics. Defaults to prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
}

// Server is the directory's HTTP server.
type Server struct {
	cfg      *config.Config
	svc      *core.Service
	auth     *auth.Authenticator
	sender   notify.Sender
	resetter *admin.Resetter
	gatherer prometheus.Gatherer

	base         string
	router       *chi.Mux
	server       *http.Server
	limiter      *rateLimiter
	loginLimiter *rateLimiter
	stop         context.CancelFunc
}

// NewServer creates a Server with its middleware and routes.
func NewServer(cfg *config.Config, deps Deps) *Server {
	s := &Server{
		cfg:          cfg,
		svc:          deps.Service,
		auth:         deps.Auth,
		sender:       deps.Sender,
		resetter:     deps.Resetter,
		gatherer:     deps.Gatherer,
		base:         strings.TrimRight(cfg.Server.BasePath, "/"),
		router:       chi.NewRouter(),
		limiter:      newRateLimiter(cfg.Rate.RequestsPerMinute, time.Minute),
		loginLimiter: newRateLimiter(cfg.Rate.LoginLimit, time.Minute),
	}
	if s.sender == nil {
		s.sender = notify.Disabled{}
	}
	if s.resetter == nil {
		s.resetter = admin.NewResetter(s.svc, s.svc.ClearTimeout())
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	if d := s.cfg.Server.RequestTimeout; d > 0 {
		s.router.Use(chimw.Timeout(d))
	}
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))
	if s.cfg.Rate.Enabled {
		s.router.Use(s.limiter.middleware)
	}
}

func (s *Server) setupRoutes() {
	if s.base == "" {
		s.routes(s.router)
		return
	}
	s.router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, s.base+"/", http.StatusFound)
	})
	s.router.Route(s.base, s.routes)
}

func (s *Server) routes(r chi.Router) {
	strict := func(h http.HandlerFunc) http.Handler { return http.HandlerFunc(h) }
	if s.cfg.Rate.Enabled {
		strict = func(h http.HandlerFunc) http.Handler { return s.loginLimiter.middleware(h) }
	}

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.Handle("/data/*", http.StripPrefix(s.base+"/data/", http.FileServer(http.Dir(s.cfg.Data.Dir))))

	r.Get("/", s.handleHome)
	r.Get("/request", s.handleRequestForm)
	r.Method(http.MethodPost, "/request", strict(s.handleRequestSubmit))

	r.Route("/admin", func(r chi.Router) {
		r.Get("/login", s.handleLoginForm)
		r.Method(http.MethodPost, "/login", strict(s.handleLogin))
		r.Post("/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireEditor(s.auth, http.HandlerFunc(s.redirectToLogin)))
			r.Get("/", s.handleAdminIndex)
			r.Post("/clear", s.handleAdminClearAll)
			r.Get("/{dataset}", s.handleAdmin)
			r.Post("/{dataset}/clear", s.handleAdminClear)
			r.Post("/{dataset}/records", s.handleAdminCreate)
			r.Get("/{dataset}/records/{id}/edit", s.handleAdminEdit)
			r.Post("/{dataset}/records/{id}", s.handleAdminUpdate)
			r.Post("/{dataset}/records/{id}/delete", s.handleAdminDelete)
			r.Post("/{dataset}/fields", s.handleAdminAddField)
			r.Post("/{dataset}/fields/{field}/delete", s.handleAdminRemoveField)
		})
	})

	r.Route("/api", s.apiRoutes)

	r.Get("/{dataset}", s.handleList)
	r.Get("/{dataset}/{id}", s.handleDetail)
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.stop = cancel
	if s.cfg.Rate.Enabled {
		go s.limiter.run(ctx)
		go s.loginLimiter.run(ctx)
	}

	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	logging.FromContext(ctx).Info("starting server", "addr", s.server.Addr, "base_path", s.base)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server and its background work.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.stop != nil {
		s.stop()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func securityHeaders(csp bool) func(http.Handler) http.Handler {
	const policy = "default-src 'self'; img-src 'self' https: data:; style-src 'self' 'unsafe-inline'; " +
		"script-src 'self' 'unsafe-inline'; form-action 'self'; frame-ancestors 'none'"
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if csp {
				h.Set("Content-Security-Policy", policy)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// nav builds the page header state for r.
func (s *Server) nav(r *http.Request, active string) templates.Nav {
	defs := s.svc.Datasets()
	links := make([]templates.DatasetLink, 0, len(defs))
	for _, d := range defs {
		links = append(links, templates.DatasetLink{Key: d.Key, Label: d.Label})
	}
	return templates.Nav{
		BasePath: s.base,
		Datasets: links,
		IsEditor: s.auth.IsEditor(r),
		Active:   active,
	}
}

// render writes c as a complete HTML response. The page is buffered so a
// render failure can still become a 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	var buf bytes.Buffer
	if err := c.Render(r.Context(), &buf); err != nil {
		logging.FromContext(r.Context()).Error("render failed", "path", r.URL.Path, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) redirect(w http.ResponseWriter, r *http.Request, segments ...string) {
	http.Redirect(w, r, s.nav(r, "").URL(segments...), http.StatusSeeOther)
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("json encode error", "error", err)
	}
}
