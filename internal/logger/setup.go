package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Config holds logger configuration
type Config struct {
	Level      string
	Format     string // "pretty" or "json"
	WithCaller bool
	Output     io.Writer
}

// DefaultConfig logs warnings and above as console lines on stderr. stdout
// carries the report or the MCP stream and never receives log lines.
func DefaultConfig() *Config {
	return &Config{
		Level:  "warn",
		Format: "pretty",
		Output: os.Stderr,
	}
}

// InitLogger creates the process logger from config. Unknown levels fall back
// to info.
func InitLogger(config *Config) zerolog.Logger {
	if config == nil {
		config = DefaultConfig()
	}
	out := config.Output
	if out == nil {
		out = os.Stderr
	}

	zerolog.SetGlobalLevel(ParseLevel(config.Level))

	var w io.Writer = out
	if config.Format != "json" {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	ctx := zerolog.New(w).With().Timestamp().Str("app", "featcheck")
	if config.WithCaller {
		ctx = ctx.Caller()
	}
	return ctx.Logger()
}

// ParseLevel maps a level name to a zerolog level, accepting "warning" as
// an alias of "warn".
func ParseLevel(level string) zerolog.Level {
	name := strings.ToLower(strings.TrimSpace(level))
	if name == "warning" {
		name = "warn"
	}
	parsed, err := zerolog.ParseLevel(name)
	if err != nil || parsed == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return parsed
}

// SetupFromFlags configures logging for a command. A JSON report gets JSON
// logs so both streams stay machine readable.
func SetupFromFlags(verbose, debug bool, reportFormat string) zerolog.Logger {
	config := DefaultConfig()
	switch {
	case debug:
		config.Level = "debug"
		config.WithCaller = true
	case verbose:
		config.Level = "info"
	}
	if reportFormat == "json" {
		config.Format = "json"
	}
	return InitLogger(config)
}

// ForComponent creates a logger with component context
func ForComponent(logger zerolog.Logger, component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}

// ForRun scopes a logger to one validation run of an IUT.
func ForRun(logger zerolog.Logger, iut, description string) zerolog.Logger {
	return logger.With().
		Str("iut", iut).
		Str("description", description).
		Logger()
}

// ForTestPoint scopes a logger to one resolved endpoint.
func ForTestPoint(logger zerolog.Logger, serverURL, path string) zerolog.Logger {
	return logger.With().
		Str("server", serverURL).
		Str("path", path).
		Logger()
}

// ForCollection scopes a logger to one feature collection.
func ForCollection(logger zerolog.Logger, collectionID string) zerolog.Logger {
	return logger.With().Str("collection", collectionID).Logger()
}

// ForPage scopes a logger to one page of a next-link walk. hop is 0 for the
// first page.
func ForPage(logger zerolog.Logger, uri string, hop int) zerolog.Logger {
	return logger.With().
		Str("page", uri).
		Int("hop", hop).
		Logger()
}

// ForMCP creates a logger with MCP context
func ForMCP(logger zerolog.Logger, tool string) zerolog.Logger {
	return logger.With().
		Str("mcp_tool", tool).
		Str("component", "mcp").
		Logger()
}
