// Package api exposes the story evolution engine over HTTP.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"embryonic/pkg/embryonic"
)

// Server wraps a client behind a chi router.
type Server struct {
	client *embryonic.Client
	router *chi.Mux
	addr   string
}

func NewServer(client *embryonic.Client, addr string) *Server {
	s := &Server{client: client, addr: addr}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))

		r.Get("/embryos", s.handleListEmbryos)
		r.Post("/embryos", s.handleInitEmbryo)
		r.Get("/embryos/{name}", s.handleStatus)
		r.Get("/embryos/{name}/lineage", s.handleLineage)
		r.Get("/embryos/{name}/stories", s.handleStories)
		r.Get("/embryos/{name}/feedback", s.handleFeedbackHistory)
		r.Post("/stories", s.handleGenerate)
		r.Post("/feedback", s.handleFeedback)
		r.Get("/assets", s.handleAssets)
	})

	s.router = r
}

// Router returns the configured handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Serve starts the HTTP server and blocks until it fails.
func (s *Server) Serve() error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func errorResponse(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
