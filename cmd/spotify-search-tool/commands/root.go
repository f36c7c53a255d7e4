package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/justestif/spotify-search-tool/internal/app"
	"github.com/justestif/spotify-search-tool/internal/observability"
)

// version is overridden at build time via -ldflags.
var version = "dev"

// Execute runs the root command with the given context and arguments.
func Execute(ctx context.Context, args []string) error {
	cmd := &cli.Command{
		Name:    "spotify-search-tool",
		Usage:   "Spotify track search for AI agents",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug|info|warn|error)",
				Value: slog.LevelInfo.String(),
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "log format (text|json)",
				Value: string(app.DefaultConfigLogFormat),
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
		},
	}

	return cmd.Run(ctx, args)
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "start the HTTP server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "server--host",
				Usage: "server host",
				Value: app.DefaultConfigServerHost,
			},
			&cli.IntFlag{
				Name:  "server--port",
				Usage: "server port",
				Value: app.DefaultConfigServerPort,
			},
			&cli.StringFlag{
				Name:  "server--public-url",
				Usage: "externally reachable base URL (default http://localhost:<port>)",
			},
			&cli.StringFlag{
				Name:  "spotify--redirect-uri",
				Usage: "OAuth redirect URI (default <public-url>/callback)",
			},
			&cli.IntFlag{
				Name:  "upstream--max-concurrent",
				Usage: "maximum in-flight requests to Spotify",
				Value: app.DefaultConfigUpstreamConcurrency,
			},
		},
		Action: serveAction,
	}
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd.String("config"), cmd, os.Environ)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	err = observability.Instrument(cfg.LogLevel, string(cfg.LogFormat))
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	application, err := app.New(cfg, version)
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}

	slog.InfoContext(ctx, "starting", "version", version)

	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("app failed: %w", err)
	}

	slog.InfoContext(ctx, "stopped gracefully")
	return nil
}
