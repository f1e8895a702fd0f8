package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	mu     sync.RWMutex
	output io.Writer = os.Stderr
	format           = "text"
)

// Init sets where and how every logger created by New writes.
// format is "json" or "text".
func Init(w io.Writer, f string) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	format = strings.ToLower(f)
	slog.SetDefault(slog.New(newHandler(slog.LevelInfo)))
}

// New creates a logger whose debug lines are dropped unless debug is set.
// A non-empty scope is attached to every line.
func New(debug bool, scope string) *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	l := slog.New(newHandler(level))
	if scope != "" {
		l = l.With("scope", scope)
	}
	return l
}

// newHandler must be called with mu held.
func newHandler(level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Key = "timestamp"
			}
			if a.Key == slog.MessageKey {
				a.Key = "message"
			}
			return a
		},
	}
	if format == "json" {
		return slog.NewJSONHandler(output, opts)
	}
	return slog.NewTextHandler(output, opts)
}
