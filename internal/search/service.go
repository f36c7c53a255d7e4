// Package search implements the track search tool shared by the REST and MCP surfaces.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"

	"github.com/justestif/spotify-search-tool/internal/session"
	"github.com/justestif/spotify-search-tool/internal/spotify"
)

var (
	// ErrNotAuthenticated is returned when the session holds no access token.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrEmptyQuery is returned when the query is empty.
	ErrEmptyQuery = errors.New("query is required")

	// ErrUpstream is returned when the Spotify API call fails.
	ErrUpstream = errors.New("upstream search failed")
)

// Caller-facing messages for each failure.
const (
	MessageNotAuthenticated = "Not authenticated. Please visit /login first."
	MessageEmptyQuery       = "Query parameter is required"
	MessageUpstream         = "Failed to search tracks"
)

// TokenGetter looks up the access token for a session.
type TokenGetter interface {
	Get(ctx context.Context, id string) (*oauth2.Token, error)
}

// TrackSearcher queries the upstream catalog.
type TrackSearcher interface {
	SearchTracks(ctx context.Context, token *oauth2.Token, query string) ([]spotify.Track, error)
}

// Result is the tool's success payload.
type Result struct {
	Tracks []spotify.Track `json:"tracks"`
}

// Service runs track searches for a session.
type Service struct {
	tokens TokenGetter
	tracks TrackSearcher
}

// NewService creates a search Service.
func NewService(tokens TokenGetter, tracks TrackSearcher) *Service {
	return &Service{tokens: tokens, tracks: tracks}
}

// Search checks, in order, that the session is authenticated and that query
// is non-empty, then runs the upstream search. Upstream failures are logged
// and reported as ErrUpstream.
func (s *Service) Search(ctx context.Context, sessionID, query string) (*Result, error) {
	token, err := s.tokens.Get(ctx, sessionID)
	if errors.Is(err, session.ErrNoToken) {
		return nil, ErrNotAuthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("loading token: %w", err)
	}

	if query == "" {
		return nil, ErrEmptyQuery
	}

	tracks, err := s.tracks.SearchTracks(ctx, token, query)
	if err != nil {
		slog.ErrorContext(ctx, "error searching tracks", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	return &Result{Tracks: tracks}, nil
}

// Message maps a Search error to the message shown to callers.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrNotAuthenticated):
		return MessageNotAuthenticated
	case errors.Is(err, ErrEmptyQuery):
		return MessageEmptyQuery
	default:
		return MessageUpstream
	}
}
