// Package zerolog provides structured logging for pagetext built on
// github.com/rs/zerolog.
package zerolog

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// Log output formats.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// NewLogger returns a timestamped logger writing to w at the named level
// ("debug", "info", "warn", ...) in the given format.
func NewLogger(w io.Writer, level, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("parsing log level: %w", err)
	}

	switch format {
	case FormatJSON, "":
	case FormatConsole:
		w = zerolog.ConsoleWriter{Out: w, NoColor: true}
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %q", format)
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}
