// Package auth performs the Spotify OAuth2 authorization-code flow.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

var (
	// ErrMissingCredentials is returned when the client id or secret is not configured.
	ErrMissingCredentials = errors.New("missing Spotify client id or client secret")

	// ErrMissingCode is returned when the callback carries no authorization code.
	ErrMissingCode = errors.New("missing authorization code")
)

// Scopes requested on every login.
var Scopes = []string{
	spotifyauth.ScopeUserReadPrivate,
	spotifyauth.ScopeUserReadEmail,
}

// Config holds the OAuth client settings.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// AuthURL and TokenURL default to the Spotify accounts service.
	AuthURL  string
	TokenURL string
}

// Authenticator builds authorization URLs and exchanges codes for tokens.
type Authenticator struct {
	oauth      *oauth2.Config
	httpClient *http.Client
}

// New creates an Authenticator. httpClient is used for the token exchange;
// nil means http.DefaultClient.
func New(cfg Config, httpClient *http.Client) *Authenticator {
	authURL := cfg.AuthURL
	if authURL == "" {
		authURL = spotifyauth.AuthURL
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = spotifyauth.TokenURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Authenticator{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  authURL,
				TokenURL: tokenURL,
				// Spotify expects client credentials as HTTP Basic auth.
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		httpClient: httpClient,
	}
}

// AuthURL returns the URL the user is redirected to for consent.
// No state parameter is attached.
func (a *Authenticator) AuthURL() (string, error) {
	if a.oauth.ClientID == "" {
		return "", ErrMissingCredentials
	}
	return a.oauth.AuthCodeURL(""), nil
}

// Exchange trades an authorization code for an access token.
func (a *Authenticator) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if a.oauth.ClientID == "" || a.oauth.ClientSecret == "" {
		return nil, ErrMissingCredentials
	}
	if code == "" {
		return nil, ErrMissingCode
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
	token, err := a.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging code for token: %w", err)
	}
	return token, nil
}

// ErrorBody returns the provider's response body when err came from the
// token endpoint, or the error text otherwise.
func ErrorBody(err error) string {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && len(retrieveErr.Body) > 0 {
		return string(retrieveErr.Body)
	}
	return err.Error()
}
