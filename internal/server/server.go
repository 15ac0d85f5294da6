// Package server provides the HTTP API for analyzing posts: analysis,
// category listing, and stored history.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/overshare-io/overshare/internal/analyze"
	"github.com/overshare-io/overshare/internal/config"
	"github.com/overshare-io/overshare/internal/history"
	"github.com/overshare-io/overshare/internal/otel"
)

const defaultTimeout = 90 * time.Second

// Server holds all dependencies for the HTTP API.
type Server struct {
	router            *chi.Mux
	analyzer          *analyze.Analyzer
	historyStore      *history.Store
	limiter           *RateLimiter
	apiKey            string
	corsOrigins       []string
	maxPostChars      int
	classifierEnabled bool
	startTime         time.Time
}

// Option configures the Server.
type Option func(*Server)

// WithHistoryStore enables the history endpoints and analysis persistence.
func WithHistoryStore(store *history.Store) Option {
	return func(s *Server) { s.historyStore = store }
}

// WithAPIKey requires X-API-Key (or Bearer) auth on the API when non-empty.
func WithAPIKey(key string) Option {
	return func(s *Server) { s.apiKey = key }
}

// WithRateLimiter sets the request rate limiter.
func WithRateLimiter(rl *RateLimiter) Option {
	return func(s *Server) { s.limiter = rl }
}

// WithCORSOrigins sets allowed CORS origins (e.g. ["*"]).
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) { s.corsOrigins = origins }
}

// WithMaxPostChars caps accepted post length in bytes.
func WithMaxPostChars(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxPostChars = n
		}
	}
}

// WithClassifierEnabled marks model and hybrid modes as backed by a real
// classifier; used only for health reporting.
func WithClassifierEnabled(enabled bool) Option {
	return func(s *Server) { s.classifierEnabled = enabled }
}

// NewServer builds a Server around the analyzer.
func NewServer(analyzer *analyze.Analyzer, opts ...Option) *Server {
	s := &Server{
		router:       chi.NewRouter(),
		analyzer:     analyzer,
		corsOrigins:  []string{"*"},
		maxPostChars: config.DefaultMaxPostChars,
		startTime:    time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the configured http.Handler.
func (s *Server) Routes() http.Handler {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(otel.Middleware())
	r.Use(CORSMiddleware(s.corsOrigins))

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.apiKey))
		r.Use(RateLimitMiddleware(s.limiter))
		r.Use(middleware.Timeout(defaultTimeout))

		r.Post("/v1/analyze", s.handleAnalyze)
		r.Get("/v1/categories", s.handleCategories)
		r.Get("/v1/history", s.handleHistoryList)
		r.Get("/v1/history/{id}", s.handleHistoryGet)
	})

	return r
}
