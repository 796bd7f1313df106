package logging

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the logging interface used throughout the engine.
// All methods accept a context so request-scoped identifiers
// (trace ID, org ID) can be attached to every entry.
type Logger interface {
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
	Error(ctx context.Context, msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type zerologLogger struct {
	logger zerolog.Logger
}

// New creates a logger writing to stderr. Output is human-readable console
// format by default; set LOG_FORMAT=json or LOG_JSON=true for JSON lines.
// LOG_LEVEL controls the minimum level (debug, info, warn, error).
func New() Logger {
	var logger zerolog.Logger

	if jsonOutput() {
		logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		logger = zerolog.New(writer).With().Timestamp().Logger()
	}

	return &zerologLogger{logger: logger.Level(parseLevel(os.Getenv("LOG_LEVEL")))}
}

func jsonOutput() bool {
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		return true
	}
	switch strings.ToLower(os.Getenv("LOG_JSON")) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (l *zerologLogger) log(ctx context.Context, event *zerolog.Event, msg string, fields map[string]interface{}) {
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok && traceID != "" {
		event = event.Str("trace_id", traceID)
	}
	for k, v := range fields {
		event = event.Interface(k, v)
	}
	event.Msg(msg)
}

func (l *zerologLogger) Debug(ctx context.Context, msg string, fields map[string]interface{}) {
	l.log(ctx, l.logger.Debug(), msg, fields)
}

func (l *zerologLogger) Info(ctx context.Context, msg string, fields map[string]interface{}) {
	l.log(ctx, l.logger.Info(), msg, fields)
}

func (l *zerologLogger) Warn(ctx context.Context, msg string, fields map[string]interface{}) {
	l.log(ctx, l.logger.Warn(), msg, fields)
}

func (l *zerologLogger) Error(ctx context.Context, msg string, fields map[string]interface{}) {
	l.log(ctx, l.logger.Error(), msg, fields)
}

// With returns a child logger with the given fields attached to every entry.
func (l *zerologLogger) With(fields map[string]interface{}) Logger {
	ctx := l.logger.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &zerologLogger{logger: ctx.Logger()}
}

type contextKey string

// TraceIDKey is the context key under which a request trace ID is stored.
const TraceIDKey contextKey = "trace_id"

// WithTraceID returns a context carrying the given trace ID.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// NoOp returns a logger that discards everything. Useful in tests.
func NoOp() Logger {
	return &zerologLogger{logger: zerolog.Nop()}
}
