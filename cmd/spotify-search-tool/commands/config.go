package commands

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/urfave/cli/v3"

	"github.com/justestif/spotify-search-tool/internal/app"
)

// envPrefix is stripped from namespaced environment variables
// (e.g., SPOTIFY_SEARCH_UPSTREAM__TIMEOUT → upstream.timeout).
const envPrefix = "SPOTIFY_SEARCH_"

// envAliases maps the conventional deployment variables onto config keys.
var envAliases = map[string]string{
	"SPOTIFY_CLIENT_ID":     "spotify.client_id",
	"SPOTIFY_CLIENT_SECRET": "spotify.client_secret",
	"REDIRECT_URI":          "spotify.redirect_uri",
	"PORT":                  "server.port",
}

// loadConfig loads application configuration from various sources with precedence:
// config file → environment variables → CLI flags → defaults
func loadConfig(configPath string, cmd *cli.Command, environFunc func() []string) (*app.Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	envProvider := env.Provider(".", env.Opt{
		TransformFunc: func(key, value string) (string, any) {
			return envKey(key), value
		},
		EnvironFunc: environFunc,
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	if cmd != nil {
		flagValues := extractAndTransformFlags(cmd)
		if err := k.Load(confmap.Provider(flagValues, "."), nil); err != nil {
			return nil, fmt.Errorf("loading CLI flags: %w", err)
		}
	}

	config := &app.Config{}
	if err := k.UnmarshalWithConf("", config, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

// envKey returns the config key for an environment variable, or "" to skip it.
func envKey(name string) string {
	if key, ok := envAliases[name]; ok {
		return key
	}
	if stripped, ok := strings.CutPrefix(name, envPrefix); ok && stripped != "" {
		return strings.ToLower(strings.ReplaceAll(stripped, "__", "."))
	}
	return ""
}

// extractAndTransformFlags transforms set CLI flag names into config keys,
// parent flags included: --server--public-url → server.public_url.
func extractAndTransformFlags(cmd *cli.Command) map[string]any {
	values := make(map[string]any)

	for _, name := range cmd.FlagNames() {
		if !cmd.IsSet(name) {
			continue
		}

		if value := cmd.Value(name); value != nil {
			key := strings.ReplaceAll(name, "--", ".")
			key = strings.ReplaceAll(key, "-", "_")
			values[key] = value
		}
	}

	return values
}
