// Package server implements the HTTP control API for the profiling daemon.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/profiled-project/profiled/internal/session"
)

// Config contains dependencies for creating a control API server.
type Config struct {
	// Host and Port set the bind address.
	Host string
	Port int

	// Controller is the session controller the API drives.
	Controller *session.Controller

	// Logger is the logger instance.
	Logger zerolog.Logger
}

// Server is the control API server.
type Server struct {
	ctrl       *session.Controller
	handler    http.Handler
	httpServer *http.Server
	logger     zerolog.Logger
}

// New creates a control API server.
func New(cfg Config) *Server {
	logger := cfg.Logger.With().Str("component", "control_api").Logger()

	s := &Server{
		ctrl:   cfg.Controller,
		logger: logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/profiling/start", s.handleStart)
	mux.HandleFunc("POST /v1/profiling/start-config", s.handleStartConfig)
	mux.HandleFunc("POST /v1/profiling/stop", s.handleStop)
	mux.HandleFunc("GET /v1/profiling/status", s.handleStatus)
	mux.HandleFunc("GET /v1/profiling/dump", s.handleDump)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK\n"))
	})

	s.handler = s.requestLogger(mux)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           h2c.NewHandler(s.handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return s
}

// Handler returns the routed handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves the control API until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("Control API listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("control API server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Control API shutting down")
	return s.httpServer.Shutdown(ctx)
}

// requestLogger logs every request except health probes.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("Request handled")
	})
}
