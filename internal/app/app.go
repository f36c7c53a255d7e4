// Package app wires configuration into a running search tool server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/justestif/spotify-search-tool/internal/auth"
	"github.com/justestif/spotify-search-tool/internal/mcptool"
	"github.com/justestif/spotify-search-tool/internal/plugin"
	"github.com/justestif/spotify-search-tool/internal/search"
	"github.com/justestif/spotify-search-tool/internal/session"
	"github.com/justestif/spotify-search-tool/internal/spotify"
	"github.com/justestif/spotify-search-tool/internal/web"
)

// App orchestrates the lifecycle of the HTTP server.
type App struct {
	cfg    *Config
	server *web.Server
}

// New builds an App from validated configuration.
func New(cfg *Config, version string) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// One limited client serves both the accounts and the API host.
	httpClient := spotify.NewHTTPClient(spotify.LimitConfig{
		MaxConcurrent:     cfg.Upstream.MaxConcurrent,
		RequestsPerSecond: cfg.Upstream.RequestsPerSecond,
		Burst:             cfg.Upstream.Burst,
	}, cfg.Upstream.Timeout)

	authenticator := auth.New(auth.Config{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		RedirectURL:  cfg.Spotify.RedirectURI,
		AuthURL:      cfg.Spotify.AuthURL,
		TokenURL:     cfg.Spotify.TokenURL,
	}, httpClient)

	sessions := session.NewStore(cfg.Session.SharedKey)
	searcher := search.NewService(sessions, spotify.New(cfg.Spotify.APIBaseURL, httpClient))

	docs, err := plugin.NewDocuments(cfg.Server.PublicURL, auth.Scopes)
	if err != nil {
		return nil, fmt.Errorf("building discovery documents: %w", err)
	}

	server := web.NewServer(web.ServerConfig{
		Handlers: web.NewHandlers(authenticator, sessions, searcher, docs),
		MCP:      mcptool.New(searcher, sessions, version).Handler(),
	})

	return &App{cfg: cfg, server: server}, nil
}

// Start serves until ctx is cancelled or the server fails, then shuts down
// within the configured timeout.
func (a *App) Start(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	address := a.cfg.Address()
	errCh, err := a.server.Start(gCtx, address)
	if err != nil {
		return fmt.Errorf("server startup failed: %w", err)
	}

	g.Go(func() error {
		select {
		case err, ok := <-errCh:
			if ok && err != nil {
				slog.ErrorContext(gCtx, "server runtime error", "error", err)
				return fmt.Errorf("server: %w", err)
			}
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	slog.InfoContext(gCtx, "server running", "address", address, "url", a.cfg.Server.PublicURL)
	slog.InfoContext(gCtx, "visit the login URL to authenticate with Spotify", "url", a.cfg.Server.PublicURL+"/login")

	runtimeErr := g.Wait()

	slog.InfoContext(ctx, "shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Shutdown.Timeout)
	defer cancel()

	var errs []error
	if runtimeErr != nil {
		errs = append(errs, fmt.Errorf("runtime: %w", runtimeErr))
	}
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "server shutdown failed", "error", err)
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	slog.Info("server stopped")
	return nil
}
