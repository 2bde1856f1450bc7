package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var (
	output io.Writer = os.Stdout
	logger zerolog.Logger
)

func init() {
	logger = newLogger(output, zerolog.InfoLevel)
}

func newLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

func Info(format string, args ...any) {
	logger.Info().Msgf(format, args...)
}

func Debug(format string, args ...any) {
	logger.Debug().Msgf(format, args...)
}

func Warn(format string, args ...any) {
	logger.Warn().Msgf(format, args...)
}

func Error(format string, args ...any) {
	logger.Error().Msgf(format, args...)
}

// SetLevel replaces the global logger with one filtering at level.
func SetLevel(level zerolog.Level) {
	logger = newLogger(output, level)
}

// SetOutput redirects log output, mainly so tests can silence or capture it.
func SetOutput(w io.Writer) {
	output = w
	logger = newLogger(w, logger.GetLevel())
}

// ParseLevel maps a config string ("debug", "info", ...) to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return parsed
}
