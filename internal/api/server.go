// Package api serves the JSON HTTP interface the browser UI consumes.
package api

import (
	"net/http"

	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"github.com/Veraticus/house-money/internal/importer"
	"github.com/Veraticus/house-money/internal/metrics"
	"github.com/Veraticus/house-money/internal/service"
)

// maxImportBody bounds the JSON body of an import request. Files arrive
// base64 encoded inside it.
const maxImportBody = 64 << 20

// Server holds the dependencies of every HTTP handler.
type Server struct {
	store    service.Storage
	importer *importer.Orchestrator
	metrics  *metrics.Recorder
	limiter  *rate.Limiter
	defaults importer.Options
	origins  []string
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics exposes r on /metrics.
func WithMetrics(r *metrics.Recorder) Option {
	return func(s *Server) { s.metrics = r }
}

// WithAllowedOrigins sets the origins allowed to call the API from a browser.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) { s.origins = origins }
}

// WithImportRateLimit limits import requests to rps per second. Zero disables
// limiting.
func WithImportRateLimit(rps float64) Option {
	return func(s *Server) {
		if rps <= 0 {
			s.limiter = nil
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithImportDefaults sets the import options used when a request omits them.
func WithImportDefaults(opts importer.Options) Option {
	return func(s *Server) { s.defaults = opts }
}

// New creates a Server on top of store, importing through orch.
func New(store service.Storage, orch *importer.Orchestrator, opts ...Option) *Server {
	s := &Server{
		store:    store,
		importer: orch,
		defaults: importer.Options{Format: importer.FormatStandard, Policy: importer.PolicyDrop},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed API with CORS and access logging applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	mux.Handle("POST /api/imports", s.rateLimit(http.HandlerFunc(s.handleImport)))
	mux.HandleFunc("GET /api/files", s.handleListFiles)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("DELETE /api/transactions", s.handleDeleteTransactions)
	mux.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}/tags", s.handleUpdateTags)
	mux.HandleFunc("PUT /api/transactions/{id}/note", s.handleUpdateNote)

	mux.HandleFunc("GET /api/tags", s.handleListTags)
	mux.HandleFunc("POST /api/tags", s.handleCreateTag)
	mux.HandleFunc("PUT /api/tags/{id}", s.handleUpdateTag)
	mux.HandleFunc("DELETE /api/tags/{id}", s.handleDeleteTag)

	mux.HandleFunc("GET /api/summary", s.handleSummary)

	c := cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         3600,
	})

	return Logging(c.Handler(mux))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	version, err := s.store.SchemaVersion(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "schema_version": version})
}
