// Package web provides the HTTP API for deduplicating uploaded spreadsheets.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/JonMunkholm/sheetdedup/internal/config"
	"github.com/JonMunkholm/sheetdedup/internal/dedup"
	mw "github.com/JonMunkholm/sheetdedup/internal/web/middleware"
)

// RowWriter persists a deduplicated dataset. Satisfied by *pgsink.Sink.
type RowWriter interface {
	Write(ctx context.Context, table string, ds *dedup.Dataset, runID uuid.UUID) (int64, error)
}

// Server is the HTTP server for the dedup API.
type Server struct {
	cfg     *config.Config
	limiter *JobLimiter
	sink    RowWriter
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates a Server. sink may be nil, in which case results are
// only returned to the client.
func NewServer(cfg *config.Config, sink RowWriter) *Server {
	s := &Server{
		cfg:     cfg,
		limiter: NewJobLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime),
		sink:    sink,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))

	if origins := s.cfg.Server.CORSOrigins; len(origins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
			ExposedHeaders: exposedHeaders,
			MaxAge:         300,
		}))
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/dedup", s.handleDedup)
		r.Post("/analyze", s.handleAnalyze)
	})
}

// Start listens on the configured address until Shutdown is called.
// A clean shutdown returns nil.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown is called.
func (s *Server) Serve(ln net.Listener) error {
	slog.Info("server listening", "addr", ln.Addr().String())
	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown waits for running jobs, then gracefully stops the server.
// Both steps share ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	if active := s.limiter.ActiveCount(); active > 0 {
		slog.Info("waiting for jobs to complete", "active", active)
		if err := s.limiter.WaitForDrain(ctx); err != nil {
			slog.Warn("jobs did not complete in time", "error", err)
		}
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Limiter returns the server's job limiter.
func (s *Server) Limiter() *JobLimiter {
	return s.limiter
}

// writeJSON encodes v as JSON with the given status.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
