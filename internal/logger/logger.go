// Package logger provides a thin wrapper around zerolog.Logger used by
// every vvmsync component.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Logger embeds zerolog.Logger so the full zerolog API is available.
type Logger struct {
	zerolog.Logger
}

// New builds a logger tagged with role. format "console" writes human
// readable lines; anything else writes JSON. A nil writer means stderr.
func New(role, level, format string, w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}
	if strings.EqualFold(format, "console") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	l := zerolog.New(w).Level(lvl).With().
		Str("role", role).
		Timestamp().
		Logger()

	return &Logger{l}
}

// Nop returns a logger that discards all output. Intended for tests.
func Nop() *Logger {
	return &Logger{zerolog.Nop()}
}

// WithAccount returns a child logger carrying the phone account ID.
func (l *Logger) WithAccount(accountID string) *Logger {
	return &Logger{l.With().Str("account", accountID).Logger()}
}

// WithComponent returns a child logger carrying a component name.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{l.With().Str("component", name).Logger()}
}
