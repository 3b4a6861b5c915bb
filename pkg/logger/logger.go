// Package logger provides the zerolog-backed service logger. Development
// gets human-readable console output; everywhere else emits JSON lines.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger
type Logger struct {
	zerolog.Logger
}

// New creates a logger tagged with the service name. The level can be
// overridden with WORKSAFE_LOG_LEVEL (debug, info, warn, error); it
// defaults to debug in development and info otherwise.
func New(serviceName string, environment string) *Logger {
	var output io.Writer = os.Stdout
	level := zerolog.InfoLevel

	if environment == "development" {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		level = zerolog.DebugLevel
	}

	if override := os.Getenv("WORKSAFE_LOG_LEVEL"); override != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(override)); err == nil {
			level = parsed
		}
	}

	l := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()

	return &Logger{Logger: l}
}

// WithComponent returns a logger with the component name attached
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger: l.Logger.With().Str("component", component).Logger(),
	}
}
