// Package logging provides structured logging for recursor.
//
// Hooks write JSON lines to <home>/logs/recursor.log. stdout is reserved for
// the hook response, so nothing here ever writes there. Until Init succeeds
// (or after it fails) records go to stderr at WARN and above.
//
// Context carries the component and conversation id so handlers deep in the
// call stack don't need to thread them through by hand:
//
//	ctx = logging.WithComponent(ctx, "hooks")
//	ctx = logging.WithConversation(ctx, id)
//	logging.Info(ctx, "saved window", slog.String("app", h.AppName))
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

type contextKey int

const (
	componentKey contextKey = iota
	conversationKey
	hookKey
)

var (
	mu      sync.RWMutex
	logger  = newFallbackLogger(os.Stderr)
	logFile *os.File
)

func newFallbackLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// ParseLevel maps a settings value to a slog level. Unknown or empty values
// map to INFO.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// ValidLevel reports whether s is a level name ParseLevel understands.
func ValidLevel(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

// Init opens <dir>/recursor.log for appending and routes all records there.
// On failure the stderr fallback stays in place and the error is returned.
func Init(_ context.Context, dir string, level string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	path := filepath.Join(dir, "recursor.log")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600) //nolint:gosec // fixed file name under our home
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	handler := slog.NewJSONHandler(f, &slog.HandlerOptions{Level: ParseLevel(level)})

	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		_ = logFile.Close()
	}
	logFile = f
	logger = slog.New(handler).With(slog.Int("pid", os.Getpid()))
	return nil
}

// Close flushes and closes the log file and restores the stderr fallback.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		_ = logFile.Sync()
		_ = logFile.Close()
		logFile = nil
	}
	logger = newFallbackLogger(os.Stderr)
}

// SetOutput routes records to w at the given level. Tests use it to capture
// output without touching the filesystem.
func SetOutput(w io.Writer, level slog.Level) {
	mu.Lock()
	defer mu.Unlock()
	logger = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// WithComponent tags records logged with ctx with a component name.
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// WithConversation tags records logged with ctx with a conversation id.
func WithConversation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, conversationKey, id)
}

// WithHook tags records logged with ctx with the hook name.
func WithHook(ctx context.Context, hook string) context.Context {
	return context.WithValue(ctx, hookKey, hook)
}

func contextAttrs(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}
	var attrs []any
	if v, ok := ctx.Value(componentKey).(string); ok && v != "" {
		attrs = append(attrs, slog.String("component", v))
	}
	if v, ok := ctx.Value(hookKey).(string); ok && v != "" {
		attrs = append(attrs, slog.String("hook", v))
	}
	if v, ok := ctx.Value(conversationKey).(string); ok && v != "" {
		attrs = append(attrs, slog.String("conversation_id", v))
	}
	return attrs
}

func log(ctx context.Context, level slog.Level, msg string, attrs ...any) {
	mu.RLock()
	l := logger
	mu.RUnlock()

	if ctx == nil {
		ctx = context.Background()
	}
	if !l.Enabled(ctx, level) {
		return
	}
	l.Log(ctx, level, msg, append(contextAttrs(ctx), attrs...)...)
}

func Debug(ctx context.Context, msg string, attrs ...any) { log(ctx, slog.LevelDebug, msg, attrs...) }
func Info(ctx context.Context, msg string, attrs ...any)  { log(ctx, slog.LevelInfo, msg, attrs...) }
func Warn(ctx context.Context, msg string, attrs ...any)  { log(ctx, slog.LevelWarn, msg, attrs...) }
func Error(ctx context.Context, msg string, attrs ...any) { log(ctx, slog.LevelError, msg, attrs...) }

// LogDuration logs msg with a duration_ms attribute measured from start.
func LogDuration(ctx context.Context, level slog.Level, msg string, start time.Time, attrs ...any) {
	log(ctx, level, msg, append(attrs, slog.Int64("duration_ms", time.Since(start).Milliseconds()))...)
}
