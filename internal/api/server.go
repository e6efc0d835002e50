package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/docnav/internal/catalog"
	"github.com/dgallion1/docnav/internal/config"
	"github.com/dgallion1/docnav/internal/metrics"
	"github.com/dgallion1/docnav/internal/stats"
)

// Server is the HTTP API server for docnav.
type Server struct {
	router       chi.Router
	orchestrator *catalog.Orchestrator
	catalog      *catalog.Catalog
	stats        *stats.Loads
	metrics      *metrics.Recorder
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *catalog.Orchestrator, st *stats.Loads, rec *metrics.Recorder, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		catalog:      orch.Catalog(),
		stats:        st,
		metrics:      rec,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Get("/api/projects", s.handleListProjects)
		r.Route("/api/projects/{name}", func(r chi.Router) {
			r.Get("/", s.handleProject)
			r.Get("/shard", s.handleShard)
			r.Get("/resolve", s.handleResolve)
			r.Get("/children", s.handleChildren)
			r.Get("/report", s.handleReport)
			r.Get("/outline", s.handleOutline)
			r.Post("/reload", s.handleReload)
		})
		r.Get("/api/jobs/{jobID}", s.handleJobStatus)
		r.Get("/api/stats/loads", s.handleLoadStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"projects": s.catalog.Len(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
