// Package session holds OAuth access tokens in memory, keyed by session id.
//
// Every successful authorization is written twice: under a fresh per-browser
// session id and under the shared key that agents without a session cookie
// fall back to. The shared key therefore always holds the token of the most
// recent authorization.
package session

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const (
	// CookieName is the cookie carrying a per-browser session id.
	CookieName = "session_id"

	// DefaultSharedKey is the session id used by callers without a cookie.
	DefaultSharedKey = "default"
)

// ErrNoToken is returned when no token is stored for a session.
var ErrNoToken = errors.New("no token for session")

// Store is an in-memory token store. Tokens are never expired or refreshed;
// they live until overwritten or until the process exits.
type Store struct {
	mu        sync.RWMutex
	tokens    map[string]*oauth2.Token
	sharedKey string
}

// NewStore creates an empty store. An empty sharedKey selects DefaultSharedKey.
func NewStore(sharedKey string) *Store {
	if sharedKey == "" {
		sharedKey = DefaultSharedKey
	}
	return &Store{
		tokens:    make(map[string]*oauth2.Token),
		sharedKey: sharedKey,
	}
}

// SharedKey returns the session id used by callers without a cookie.
func (s *Store) SharedKey() string {
	return s.sharedKey
}

// Put stores the token for a session, replacing any previous one.
func (s *Store) Put(_ context.Context, id string, token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return errors.New("cannot store empty token")
	}

	s.mu.Lock()
	s.tokens[id] = token
	s.mu.Unlock()

	return nil
}

// Get returns the token stored for a session, or ErrNoToken.
func (s *Store) Get(_ context.Context, id string) (*oauth2.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	token, ok := s.tokens[id]
	if !ok {
		return nil, ErrNoToken
	}
	return token, nil
}

// Delete removes the token for a session.
func (s *Store) Delete(_ context.Context, id string) {
	s.mu.Lock()
	delete(s.tokens, id)
	s.mu.Unlock()
}

// Authorize records a freshly exchanged token under a new session id and
// under the shared key, and returns the new session id.
func (s *Store) Authorize(_ context.Context, token *oauth2.Token) (string, error) {
	if token == nil || token.AccessToken == "" {
		return "", errors.New("cannot store empty token")
	}

	id := uuid.NewString()

	s.mu.Lock()
	s.tokens[id] = token
	s.tokens[s.sharedKey] = token
	s.mu.Unlock()

	return id, nil
}

// Resolve picks the session for a request: the cookie's session when the
// store knows it, the shared key otherwise.
func (s *Store) Resolve(r *http.Request) string {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return s.sharedKey
	}

	s.mu.RLock()
	_, ok := s.tokens[cookie.Value]
	s.mu.RUnlock()

	if !ok {
		return s.sharedKey
	}
	return cookie.Value
}

// SetCookie sets the session cookie on the response.
func SetCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying the session id.
func NewContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the session id stored by NewContext.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKey{}).(string)
	return id, ok && id != ""
}
