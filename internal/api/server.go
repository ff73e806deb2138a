package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/storygraph/internal/config"
	"github.com/dgallion1/storygraph/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for storygraph.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, log *slog.Logger, cfg config.Config) *Server {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		orchestrator: orch,
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

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/graphs", s.handleBuild)
		r.Post("/api/graphs/batch", s.handleBatchBuild)
		r.Get("/api/jobs/{jobID}/status", s.handleJobStatus)
		r.Get("/api/stats/builds", s.handleBuildStats)

		r.Get("/api/graphs", s.handleListGraphs)
		r.Get("/api/graphs/{graphID}", s.handleGetGraph)
		r.Get("/api/graphs/{graphID}/paths", s.handlePaths)
		r.Get("/api/graphs/{graphID}/report", s.handleReport)
		r.Delete("/api/graphs/{graphID}", s.handleDeleteGraph)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
