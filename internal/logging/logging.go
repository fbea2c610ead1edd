// Package logging builds the process logger.
//
// Logs never go to stdout, which carries the language server protocol.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
)

// ParseLevel parses a level name. Unknown names map to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Options configures New.
type Options struct {
	// Level is the minimum level name, see ParseLevel.
	Level string

	// File receives logs when set; otherwise Output is used.
	File string

	// Output defaults to os.Stderr.
	Output io.Writer

	// Session identifies this process in the logs. A random UUID is used
	// when empty.
	Session string
}

// Logger is a configured logger and the file it may own.
type Logger struct {
	*slog.Logger

	// Session is the session attribute carried by every record.
	Session string

	closer io.Closer
}

// New creates a text logger carrying a session attribute.
func New(opts Options) (*Logger, error) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	var closer io.Closer
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file %s: %w", opts.File, err)
		}
		out, closer = f, f
	}

	session := opts.Session
	if session == "" {
		session = uuid.NewString()
	}

	handler := slog.NewTextHandler(out, &slog.HandlerOptions{Level: ParseLevel(opts.Level)})
	return &Logger{
		Logger:  slog.New(handler).With("session", session),
		Session: session,
		closer:  closer,
	}, nil
}

// Close closes the log file, if any.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// WithComponent returns a logger with the component attribute set.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = Discard()
	}
	return logger.With("component", component)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
