// Package logging provides structured logging configuration using log/slog.
//
// Loggers obtained through FromContext carry whatever correlation the
// context holds: the chi request id on the HTTP surface, the run id and
// feature version inside a pipeline run, and the active trace id.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"
)

type contextKey string

const (
	ctxKeyRunID   contextKey = "run_id"
	ctxKeyVersion contextKey = "feature_version"
)

// Setup configures the global slog logger based on level and format.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json" (default: "text")
//
// Logs go to stderr so command output on stdout stays clean.
func Setup(level, format string) {
	slog.SetDefault(New(os.Stderr, level, format))
}

// New builds a logger writing to w.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// ContextWithRun stores the run identity for FromContext.
func ContextWithRun(ctx context.Context, runID, version string) context.Context {
	ctx = context.WithValue(ctx, ctxKeyRunID, runID)
	return context.WithValue(ctx, ctxKeyVersion, version)
}

// RunIDFromContext returns the run id stored by ContextWithRun.
func RunIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyRunID).(string); ok {
		return v
	}
	return ""
}

// FromContext returns a logger enriched with request, run and trace ids
// found in ctx.
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()

	// Chi's RequestID middleware stores the ID in context
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		logger = logger.With("request_id", reqID)
	}
	if runID, ok := ctx.Value(ctxKeyRunID).(string); ok && runID != "" {
		logger = logger.With("run_id", runID)
	}
	if version, ok := ctx.Value(ctxKeyVersion).(string); ok && version != "" {
		logger = logger.With("feature_version", version)
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		logger = logger.With("trace_id", sc.TraceID().String())
	}

	return logger
}

// WithRun stores the run identity in ctx and returns the enriched context
// together with its logger.
func WithRun(ctx context.Context, runID, version string) (context.Context, *slog.Logger) {
	ctx = ContextWithRun(ctx, runID, version)
	return ctx, FromContext(ctx)
}

// WithFields returns a logger with additional structured fields.
//
// Usage:
//
//	logger := logging.WithFields(ctx, "stage", "staging")
//	logger.Info("stage completed", "staged", n)
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}
