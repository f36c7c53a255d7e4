package app

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	spotifyauth "github.com/zmb3/spotify/v2/auth"

	"github.com/justestif/spotify-search-tool/internal/observability"
	"github.com/justestif/spotify-search-tool/internal/session"
	"github.com/justestif/spotify-search-tool/internal/spotify"
)

// LogFormat represents the logging output format.
type LogFormat string

const (
	LogFormatText LogFormat = observability.FormatText
	LogFormatJSON LogFormat = observability.FormatJSON
)

// Default configuration values
const (
	DefaultConfigLogFormat           = LogFormatText
	DefaultConfigServerHost          = "0.0.0.0"
	DefaultConfigServerPort          = 3000
	DefaultConfigShutdownTimeout     = 10 * time.Second
	DefaultConfigUpstreamTimeout     = 10 * time.Second
	DefaultConfigUpstreamConcurrency = 8
	DefaultConfigUpstreamRPS         = 10
	DefaultConfigUpstreamBurst       = 5
)

// ServerConfig holds listener configuration.
type ServerConfig struct {
	Host string `json:"host" validate:"hostname_rfc1123|ip"`
	Port uint16 `json:"port"`

	// PublicURL is the externally reachable base URL advertised in the
	// discovery documents. Defaults to http://localhost:<port>.
	PublicURL string `json:"public_url" validate:"omitempty,url"`
}

// SpotifyConfig holds OAuth client and endpoint configuration.
// Credentials are only checked when a login or callback needs them.
type SpotifyConfig struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RedirectURI  string `json:"redirect_uri" validate:"omitempty,url"`
	AuthURL      string `json:"auth_url" validate:"required,url"`
	TokenURL     string `json:"token_url" validate:"required,url"`
	APIBaseURL   string `json:"api_base_url" validate:"required,url"`
}

// UpstreamConfig bounds outbound calls to Spotify.
type UpstreamConfig struct {
	Timeout           time.Duration `json:"timeout" validate:"gte=0"`
	MaxConcurrent     int64         `json:"max_concurrent" validate:"gte=0"`
	RequestsPerSecond float64       `json:"requests_per_second" validate:"gte=0"`
	Burst             int           `json:"burst" validate:"gte=0"`
}

// SessionConfig holds token store configuration.
type SessionConfig struct {
	// SharedKey is the session used by callers without a session cookie.
	SharedKey string `json:"shared_key" validate:"required"`
}

// ShutdownConfig holds shutdown behavior configuration.
type ShutdownConfig struct {
	Timeout time.Duration `json:"timeout"`
}

// Config holds the application's configuration.
type Config struct {
	LogLevel  slog.Level     `json:"log_level"`
	LogFormat LogFormat      `json:"log_format" validate:"oneof=text json"`
	Server    ServerConfig   `json:"server"`
	Spotify   SpotifyConfig  `json:"spotify"`
	Upstream  UpstreamConfig `json:"upstream"`
	Session   SessionConfig  `json:"session"`
	Shutdown  ShutdownConfig `json:"shutdown"`
}

// Default creates a new Config with default values applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills unset config fields.
func (c *Config) ApplyDefaults() {
	if c.LogFormat == "" {
		c.LogFormat = DefaultConfigLogFormat
	}
	if c.Server.Host == "" {
		c.Server.Host = DefaultConfigServerHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultConfigServerPort
	}
	if c.Server.PublicURL == "" {
		c.Server.PublicURL = "http://localhost:" + strconv.FormatUint(uint64(c.Server.Port), 10)
	}
	if c.Spotify.RedirectURI == "" {
		c.Spotify.RedirectURI = c.Server.PublicURL + "/callback"
	}
	if c.Spotify.AuthURL == "" {
		c.Spotify.AuthURL = spotifyauth.AuthURL
	}
	if c.Spotify.TokenURL == "" {
		c.Spotify.TokenURL = spotifyauth.TokenURL
	}
	if c.Spotify.APIBaseURL == "" {
		c.Spotify.APIBaseURL = spotify.DefaultBaseURL
	}
	if c.Upstream.Timeout == 0 {
		c.Upstream.Timeout = DefaultConfigUpstreamTimeout
	}
	if c.Upstream.MaxConcurrent == 0 {
		c.Upstream.MaxConcurrent = DefaultConfigUpstreamConcurrency
	}
	if c.Upstream.RequestsPerSecond == 0 {
		c.Upstream.RequestsPerSecond = DefaultConfigUpstreamRPS
	}
	if c.Upstream.Burst == 0 {
		c.Upstream.Burst = DefaultConfigUpstreamBurst
	}
	if c.Session.SharedKey == "" {
		c.Session.SharedKey = session.DefaultSharedKey
	}
	if c.Shutdown.Timeout == 0 {
		c.Shutdown.Timeout = DefaultConfigShutdownTimeout
	}
}

// Validate validates the configuration using struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	return nil
}

// Address returns the host:port the server listens on.
func (c *Config) Address() string {
	return c.Server.Host + ":" + strconv.FormatUint(uint64(c.Server.Port), 10)
}
