// Package web provides the HTTP server for the Spotify search tool.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/justestif/spotify-search-tool/internal/plugin"
)

// ServerConfig holds the server's collaborators.
type ServerConfig struct {
	Handlers *Handlers

	// MCP is mounted at /mcp when set.
	MCP http.Handler

	// Logger receives request logs. Defaults to slog.Default().
	Logger *slog.Logger
}

// Server is the HTTP server for the search tool.
type Server struct {
	router   chi.Router
	server   *http.Server
	handlers *Handlers
	logger   *slog.Logger
}

var _ http.Handler = (*Server)(nil)

// NewServer creates a new web server.
func NewServer(cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		router:   chi.NewRouter(),
		handlers: cfg.Handlers,
		logger:   logger,
	}

	s.setupMiddleware()
	s.setupRoutes(cfg.MCP)

	return s
}

// setupMiddleware configures middleware for the router.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(Logging(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}))
}

// setupRoutes configures routes for the application.
func (s *Server) setupRoutes(mcpHandler http.Handler) {
	// Auth routes
	s.router.Get("/login", s.handlers.Login)
	s.router.Get("/callback", s.handlers.Callback)

	// Discovery documents
	s.router.Get("/.well-known/ai-plugin.json", s.handlers.Manifest)
	s.router.Get("/openapi.json", s.handlers.OpenAPI)

	// Tools
	s.router.Post(plugin.SearchPath, s.handlers.Search)

	if mcpHandler != nil {
		s.router.Handle("/mcp", mcpHandler)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start listens on address and serves in the background.
// Listen errors are returned immediately; errors while serving are sent on
// the returned channel, which is closed when the server stops.
func (s *Server) Start(ctx context.Context, address string) (<-chan error, error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", address, err)
	}

	s.server = &http.Server{
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		err := s.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	return errCh, nil
}

// Shutdown gracefully shuts down the server, forcing it closed if ctx expires first.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	if err := s.server.Shutdown(ctx); err != nil {
		_ = s.server.Close()
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
