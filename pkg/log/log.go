// Package log configures the process-wide zerolog logger and hands
// out child loggers scoped by component, repository or file.
package log

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the process-wide logger. Setup replaces it; until then the
// zero configuration logs human-readable output at info level.
var Logger = zerolog.New(console(os.Stderr)).Level(zerolog.InfoLevel).With().Timestamp().Logger()

// Setup configures the global logger. level accepts zerolog's level
// names (debug, info, warn, error); anything unparsable falls back to
// info. JSON output is meant for machine consumers, everything else
// gets the console writer. A nil output logs to stderr.
func Setup(level string, json bool, output io.Writer) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if output == nil {
		output = os.Stderr
	}
	if !json {
		output = console(output)
	}
	Logger = zerolog.New(output).With().Timestamp().Logger()
}

func console(out io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
}

// WithComponent creates a child logger scoped to one subsystem
// (index, cache, semantic, ...).
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithRepo creates a child logger carrying the repo_ref every pass
// message is tagged with.
func WithRepo(repoRef string) zerolog.Logger {
	return Logger.With().Str("repo_ref", repoRef).Logger()
}

// WithFile creates a child logger for per-file worker messages.
func WithFile(path string) zerolog.Logger {
	return Logger.With().Str("file", path).Logger()
}
