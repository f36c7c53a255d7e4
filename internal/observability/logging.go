// Package observability configures process-wide structured logging.
package observability

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/log"
)

// Log output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// NewLogger returns a slog.Logger writing to w at the given level.
// Text output goes through charmbracelet/log; JSON uses slog's JSON handler.
func NewLogger(w io.Writer, level slog.Level, format string) (*slog.Logger, error) {
	switch format {
	case FormatText, "":
		handler := log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			Level:           log.Level(level),
		})
		return slog.New(handler), nil
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})), nil
	default:
		return nil, fmt.Errorf("unsupported log format: %q", format)
	}
}

// Instrument installs a stderr logger as the slog default.
func Instrument(level slog.Level, format string) error {
	logger, err := NewLogger(os.Stderr, level, format)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	return nil
}
