// Package api serves layouts over HTTP.
//
// # Endpoints
//
//	POST   /v1/layout                   lay out a posted graph
//	POST   /v1/sessions                 create a live session
//	POST   /v1/sessions/{id}/edits      apply edits as one batch
//	GET    /v1/sessions/{id}/layout     latest layout of a session
//	DELETE /v1/sessions/{id}            close a session
//	GET    /v1/sessions/{id}/stream     websocket, one frame per relayout
//	GET    /healthz
//	GET    /metrics                     when a metrics handler is configured
//
// Errors are JSON objects {"code": ..., "message": ...} with the status
// derived from the code.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/linlog/pkg/pipeline"
	"github.com/matzehuels/linlog/pkg/session"
)

// Default limits.
const (
	DefaultMaxBodyBytes    = 8 << 20
	DefaultCleanupInterval = time.Minute
	shutdownTimeout        = 10 * time.Second
)

// Config configures a [Server].
type Config struct {
	// Addr is the listen address for ListenAndServe.
	Addr string

	// Runner computes stateless layouts. Nil uses an uncached runner.
	Runner *pipeline.Runner

	// Sessions stores live sessions. Nil uses a MemoryStore.
	Sessions session.Store

	// Defaults are the options request bodies are decoded over.
	Defaults pipeline.Options

	SessionTTL      time.Duration
	CleanupInterval time.Duration
	MaxBodyBytes    int64

	// Metrics is mounted at /metrics when set.
	Metrics http.Handler

	Logger *log.Logger
}

// Server is the HTTP API.
type Server struct {
	cfg    Config
	router chi.Router
	logger *log.Logger
}

// New builds a server and its routes.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Runner == nil {
		cfg.Runner = pipeline.NewRunner(nil, nil, cfg.Logger)
	}
	if cfg.Sessions == nil {
		cfg.Sessions = session.NewMemoryStore()
	}
	if cfg.Defaults == (pipeline.Options{}) {
		cfg.Defaults = pipeline.DefaultOptions()
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = session.DefaultTTL
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultCleanupInterval
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	s := &Server{cfg: cfg, logger: cfg.Logger}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.instrument)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.cfg.Metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/layout", s.handleLayout)
		r.Post("/sessions", s.handleCreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Post("/edits", s.handleEdits)
			r.Get("/layout", s.handleSessionLayout)
			r.Delete("/", s.handleDeleteSession)
			r.Get("/stream", s.handleStream)
		})
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
// Expired sessions are swept in the background meanwhile.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go session.Janitor(ctx, s.cfg.Sessions, s.cfg.CleanupInterval, func(n int) {
		s.logger.Debug("removed expired sessions", "count", n)
	})

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	if err == nil {
		err = <-errCh
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
