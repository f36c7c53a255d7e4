package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/justestif/spotify-search-tool/internal/auth"
	"github.com/justestif/spotify-search-tool/internal/plugin"
	"github.com/justestif/spotify-search-tool/internal/search"
	"github.com/justestif/spotify-search-tool/internal/session"
)

const (
	callbackSuccessMessage = "Authentication successful! You can now use the MCP tools."
	callbackFailureMessage = "Authentication failed"

	maxSearchBodyBytes = 1 << 20
)

// Authenticator drives the OAuth authorization-code flow.
type Authenticator interface {
	AuthURL() (string, error)
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

// Searcher runs a track search for a session.
type Searcher interface {
	Search(ctx context.Context, sessionID, query string) (*search.Result, error)
}

// Handlers contains HTTP handlers for the search tool.
type Handlers struct {
	auth     Authenticator
	sessions *session.Store
	search   Searcher
	docs     *plugin.Documents
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(authenticator Authenticator, sessions *session.Store, searcher Searcher, docs *plugin.Documents) *Handlers {
	return &Handlers{
		auth:     authenticator,
		sessions: sessions,
		search:   searcher,
		docs:     docs,
	}
}

// Login redirects to the Spotify consent page (GET /login).
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	url, err := h.auth.AuthURL()
	if err != nil {
		slog.ErrorContext(r.Context(), "error building authorization URL", "error", err)
		http.Error(w, callbackFailureMessage, http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, url, http.StatusFound)
}

// Callback exchanges the authorization code for a token (GET /callback).
// On failure the token store is left untouched.
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		slog.ErrorContext(ctx, "error getting access token", "error", errMsg)
		http.Error(w, callbackFailureMessage, http.StatusInternalServerError)
		return
	}

	token, err := h.auth.Exchange(ctx, r.URL.Query().Get("code"))
	if err != nil {
		slog.ErrorContext(ctx, "error getting access token", "error", auth.ErrorBody(err))
		http.Error(w, callbackFailureMessage, http.StatusInternalServerError)
		return
	}

	id, err := h.sessions.Authorize(ctx, token)
	if err != nil {
		slog.ErrorContext(ctx, "error storing access token", "error", err)
		http.Error(w, callbackFailureMessage, http.StatusInternalServerError)
		return
	}
	session.SetCookie(w, id)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, callbackSuccessMessage)
}

// Manifest serves the plugin manifest (GET /.well-known/ai-plugin.json).
func (h *Handlers) Manifest(w http.ResponseWriter, r *http.Request) {
	writeRawJSON(r.Context(), w, h.docs.Manifest)
}

// OpenAPI serves the OpenAPI document (GET /openapi.json).
func (h *Handlers) OpenAPI(w http.ResponseWriter, r *http.Request) {
	writeRawJSON(r.Context(), w, h.docs.OpenAPI)
}

// searchRequest is the body of POST /tools/search.
type searchRequest struct {
	Query string `json:"query"`
}

// Search runs the search tool (POST /tools/search).
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// An unreadable body is treated as a missing query; the authentication
	// check still comes first.
	var req searchRequest
	_ = json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSearchBodyBytes)).Decode(&req)

	result, err := h.search.Search(ctx, h.sessions.Resolve(r), req.Query)
	if err != nil {
		writeJSONError(ctx, w, search.Message(err), statusFor(err))
		return
	}

	writeJSON(ctx, w, result, http.StatusOK)
}

// statusFor maps a search error to an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, search.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, search.ErrEmptyQuery):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
