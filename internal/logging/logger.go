// Package logging wraps zerolog for the whole service.
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Str("resource", "content").Msg("[CatalogService] loaded")
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config logging options
type Config struct {
	Level  string // trace, debug, info, warn, error
	Format string // json, console
	Output io.Writer
}

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Init configures the global logger
func Init(cfg Config) {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	logger = zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// Logger returns the configured logger
func Logger() *zerolog.Logger {
	return &logger
}

func Debug() *zerolog.Event { return logger.Debug() }
func Info() *zerolog.Event  { return logger.Info() }
func Warn() *zerolog.Event  { return logger.Warn() }
func Error() *zerolog.Event { return logger.Error() }
func Fatal() *zerolog.Event { return logger.Fatal() }

// Printf adapter for libraries that expect a printf-style logger
type Printf struct{}

func (Printf) Printf(format string, args ...interface{}) {
	logger.Info().Msgf(format, args...)
}
