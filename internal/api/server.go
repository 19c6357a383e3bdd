// Package api serves the speech endpoint and the health check.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/dgnsrekt/voicify-tts/internal/config"
	"github.com/dgnsrekt/voicify-tts/internal/tts"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "voicify-tts"

// DefaultMaxBodyBytes caps request bodies when the config leaves it unset.
const DefaultMaxBodyBytes = 10 << 20

// Synthesizer turns text into an artifact owned by scope.
type Synthesizer interface {
	Available() bool
	Synthesize(scope, text string) (*tts.Artifact, error)
}

// Artifacts tracks the files each request scope owns.
type Artifacts interface {
	Register(scope, path string)
	ReleaseAll(scope string) int
}

// Server handles HTTP API requests.
type Server struct {
	cfg       *config.Config
	logger    *slog.Logger
	synth     Synthesizer
	artifacts Artifacts
	router    chi.Router
	server    *http.Server

	maxBodyBytes int64
}

// New creates a new API server.
func New(cfg *config.Config, logger *slog.Logger, synth Synthesizer, artifacts Artifacts) *Server {
	s := &Server{
		cfg:          cfg,
		logger:       logger,
		synth:        synth,
		artifacts:    artifacts,
		maxBodyBytes: cfg.MaxBodyBytes,
	}
	if s.maxBodyBytes <= 0 {
		s.maxBodyBytes = DefaultMaxBodyBytes
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.logRequests)
	r.Use(chimiddleware.Recoverer)
	r.Use(corsHandler(cfg.CORSOrigins))
	if cfg.RateLimitEnabled() {
		r.Use(newRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).Limit)
	}

	r.Get("/health", s.handleHealth)
	r.Post("/text-to-speech", s.handleTextToSpeech)

	s.router = r
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

// Serve accepts connections on l until Shutdown.
func (s *Server) Serve(l net.Listener) error {
	s.logger.Info("starting HTTP server", "addr", l.Addr().String())
	if err := s.server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
