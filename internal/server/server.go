// Package server exposes the read-only HTTP API over the state store, ring
// buffer, and issue list. It never mutates state.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/auto-dns/buildwatch/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const (
	readTimeout       = 5 * time.Second
	readHeaderTimeout = 3 * time.Second
	writeTimeout      = 15 * time.Second
	idleTimeout       = 60 * time.Second

	defaultEventLimit = 50
	defaultLogLines   = 100
)

type Server struct {
	logger zerolog.Logger
	http   *http.Server

	store     stateReader
	events    eventReader
	issues    issueReader
	lifecycle lifecycleReader
	ingest    ingestStats
	tailer    logTailer
	meta      domain.DeploymentMetadata
}

type Options struct {
	Port           int
	MetricsEnabled bool
}

func New(store stateReader, events eventReader, issues issueReader, lc lifecycleReader, ingest ingestStats, tailer logTailer, meta domain.DeploymentMetadata, opts Options, logger zerolog.Logger) *Server {
	s := &Server{
		logger:    logger,
		store:     store,
		events:    events,
		issues:    issues,
		lifecycle: lc,
		ingest:    ingest,
		tailer:    tailer,
		meta:      meta,
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	router.Get("/health", s.handleHealth)
	router.Get("/status", s.handleStatus)
	router.Get("/events", s.handleEvents)
	router.Get("/issues", s.handleIssues)
	router.Get("/logs", s.handleLogs)
	router.Get("/container", s.handleContainer)
	if opts.MetricsEnabled {
		router.Handle("/metrics", promhttp.Handler())
	}
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, kindNotFound, "no such endpoint")
	})

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           router,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	return s
}

// Start binds the listener synchronously, so a port conflict is a startup
// failure, then serves in the background.
func (s *Server) Start(ctx context.Context) error {
	lc := &net.ListenConfig{}
	listener, err := lc.Listen(ctx, "tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("bind API port %s: %w", s.http.Addr, err)
	}

	go func() {
		s.logger.Info().Str("addr", s.http.Addr).Msg("API server listening")
		if err := s.http.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("API server error")
		}
	}()

	return nil
}

// ServeHTTP exposes the router directly; tests drive handlers through it
// without binding a port.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.http.Handler.ServeHTTP(w, r)
}

// Shutdown lets in-flight responses complete within the context's grace.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down API server")
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("shut down API server: %w", err)
	}
	return nil
}
