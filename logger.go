package sensei

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Logger wraps slog.Logger with sensei-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, nil))
}

// ParseLogger builds a logger from a level name ("debug", "info", "warn",
// "error") and a format ("text" or "json"). Unknown levels fall back to
// info.
func ParseLogger(level, format string) *Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	if strings.EqualFold(format, "json") {
		return NewJSONLogger(lvl)
	}
	return NewTextLogger(lvl)
}

// WithNode adds the node id to the logger.
func (l *Logger) WithNode(id int) *Logger {
	return &Logger{Logger: l.Logger.With("node_id", id)}
}

// WithPartition adds a partition field to the logger.
func (l *Logger) WithPartition(p int) *Logger {
	return &Logger{Logger: l.Logger.With("partition", p)}
}

// LogCompile logs a filter compilation.
func (l *Logger) LogCompile(ctx context.Context, filter string, err error) {
	if err != nil {
		l.WarnContext(ctx, "filter rejected",
			"filter", filter,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "filter compiled",
			"filter", filter,
		)
	}
}

// LogSearch logs a search request.
func (l *Logger) LogSearch(ctx context.Context, query string, hits int, took time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed",
			"query", query,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "search completed",
			"query", query,
			"hits", hits,
			"took", took,
		)
	}
}

// LogIndex logs events handed to the journal.
func (l *Logger) LogIndex(ctx context.Context, partition, events int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "index failed",
			"partition", partition,
			"events", events,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "events journaled",
			"partition", partition,
			"events", events,
		)
	}
}

// LogLifecycle logs a node start or shutdown.
func (l *Logger) LogLifecycle(ctx context.Context, op string, took time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "node "+op+" failed",
			"took", took,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "node "+op+" completed",
			"took", took,
		)
	}
}
