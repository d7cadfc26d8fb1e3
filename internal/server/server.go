package server

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/joeblew999/plat-geoview/internal/api"
	"github.com/joeblew999/plat-geoview/internal/api/panel"
	"github.com/joeblew999/plat-geoview/internal/catalog"
	"github.com/joeblew999/plat-geoview/internal/logging"
	"github.com/joeblew999/plat-geoview/internal/registry"
	"github.com/joeblew999/plat-geoview/internal/service"
	"github.com/joeblew999/plat-geoview/internal/style"
	"github.com/joeblew999/plat-geoview/internal/templates"
	"github.com/joeblew999/plat-geoview/internal/viewer"
)

// Config holds the server configuration.
type Config struct {
	Host    string
	Port    string
	DataDir string
	WebDir  string // Optional web/ directory; templates/fragments overrides the embedded fragments
	Catalog string // Presentation table (.yaml/.toml); empty uses the built-in table
	// SessionTTL is how long an idle viewer session lives. Zero means
	// viewer.DefaultTTL.
	SessionTTL time.Duration
	// FetchConcurrency caps simultaneous layer fetches per selection change.
	// Zero means no cap.
	FetchConcurrency int
	Logger           *log.Logger
}

// Server is the geoview HTTP server.
type Server struct {
	config   Config
	mux      *http.ServeMux
	humaAPI  huma.API
	logger   *log.Logger
	catalog  *catalog.Catalog
	events   *service.EventBus
	services *api.Services
	renderer *templates.Renderer
}

// New creates a new geoview server.
func New(cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	c := catalog.Default()
	if cfg.Catalog != "" {
		loaded, err := catalog.Load(cfg.Catalog)
		if err != nil {
			return nil, err
		}
		c = loaded
	}

	renderer, err := templates.New("")
	if err != nil {
		return nil, err
	}
	if cfg.WebDir != "" {
		fragmentsDir := filepath.Join(cfg.WebDir, "templates", "fragments")
		if r, err := templates.New(fragmentsDir); err == nil {
			renderer = r
			logger.Info("loaded fragment templates", "dir", fragmentsDir)
		}
	}

	mux := http.NewServeMux()

	// Create Huma API with humago (pure stdlib) adapter
	humaConfig := huma.DefaultConfig("plat-geoview API", api.Version)
	humaConfig.Info.Description = "Layer styling and legend engine: catalog, GeoJSON, per-session selection and legends."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, api.LinkTransformer())

	humaAPI := humago.New(mux, humaConfig)
	humaAPI.UseMiddleware(requestLogger(logger))

	events := service.NewEventBus()
	sources := service.NewSourceService(cfg.DataDir, c)
	rules := style.DefaultRules()
	sessions := viewer.NewStore(func(id string) *viewer.Session {
		return viewer.NewSession(id, sources, c, rules,
			registry.WithLogger(logger.With("session", id)),
			registry.WithEvents(events),
			registry.WithConcurrency(cfg.FetchConcurrency),
		)
	}, cfg.SessionTTL)

	s := &Server{
		config:  cfg,
		mux:     mux,
		humaAPI: humaAPI,
		logger:  logger,
		catalog: c,
		events:  events,
		services: &api.Services{
			Catalog:  service.NewCatalogService(c),
			Source:   sources,
			Sessions: sessions,
		},
		renderer: renderer,
	}

	s.routes()
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// OpenAPI returns the generated OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Sessions exposes the viewer session store.
func (s *Server) Sessions() *viewer.Store {
	return s.services.Sessions
}

// SweepSessions drops expired sessions every interval until ctx is done.
func (s *Server) SweepSessions(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.services.Sessions.Sweep(); n > 0 {
				s.logger.Debug("swept idle sessions", "count", n, "live", s.services.Sessions.Len())
			}
		}
	}
}

func (s *Server) routes() {
	// Register Huma REST API routes (OpenAPI-documented JSON endpoints)
	huma.AutoRegister(s.humaAPI, api.NewAPIHandler(s.services))
	api.NewInfoHandler(s.config.DataDir, s.catalog.Len()).RegisterRoutes(s.humaAPI)

	// Viewer SSE routes using Huma + Datastar SDK
	panel.NewHandler(s.catalog, s.services.Sessions, s.events, s.renderer).RegisterRoutes(s.humaAPI)

	if s.config.WebDir != "" {
		staticDir := filepath.Join(s.config.WebDir, "static")
		s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	}

	// Page routes
	s.mux.HandleFunc("/viewer", s.handleViewer)
	s.mux.HandleFunc("/", s.handleRoot)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, "/viewer", http.StatusFound)
}

func (s *Server) handleViewer(w http.ResponseWriter, r *http.Request) {
	html, err := s.renderer.Render("viewer.html", map[string]any{"Title": "plat-geoview"})
	if err != nil {
		s.logger.Error("rendering viewer page", "err", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, html)
}

// requestLogger puts logger on the request context and logs one line per API
// request once the handler returns.
func requestLogger(logger *log.Logger) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		start := time.Now()
		next(huma.WithContext(ctx, logging.WithLogger(ctx.Context(), logger)))
		logger.Debug("request",
			"method", ctx.Method(),
			"path", ctx.URL().Path,
			"status", ctx.Status(),
			"elapsed", time.Since(start).Round(time.Microsecond),
		)
	}
}
