// Package server hosts the streamable-HTTP MCP transport behind a chi
// router, with a health endpoint and optional bearer-token auth.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// HealthChecker reports upstream reachability for /healthz.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Config holds HTTP server configuration.
type Config struct {
	Addr              string
	ReadHeaderTimeout time.Duration
	IdleTimeout       time.Duration

	// JWTSecret enables bearer auth on the MCP endpoint when non-empty.
	JWTSecret string
}

// DefaultConfig returns default HTTP server configuration. There is no
// write timeout: MCP sessions stream responses and may stay open for the
// length of a completion.
func DefaultConfig(addr string) Config {
	return Config{
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// Server wraps the HTTP server hosting the MCP endpoint.
type Server struct {
	config Config
	http   *http.Server
	log    zerolog.Logger
}

// New builds the router and server. mcpHandler serves the MCP protocol at
// /mcp; health backs /healthz.
func New(config Config, mcpHandler http.Handler, health HealthChecker, log zerolog.Logger) *Server {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", healthHandler(health))

	if config.JWTSecret != "" {
		mcpHandler = AuthMiddleware([]byte(config.JWTSecret))(mcpHandler)
	}
	r.Mount("/mcp", mcpHandler)

	return &Server{
		config: config,
		http: &http.Server{
			Addr:              config.Addr,
			Handler:           r,
			ReadHeaderTimeout: config.ReadHeaderTimeout,
			IdleTimeout:       config.IdleTimeout,
		},
		log: log,
	}
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.config.Addr).Msg("serving MCP over HTTP")
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// healthHandler reports 200 when the upstream provider answers and 503
// otherwise, always with a JSON body.
func healthHandler(health HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := health.HealthCheck(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "degraded", "error": err.Error()}) //nolint:errcheck
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"}) //nolint:errcheck
	}
}
