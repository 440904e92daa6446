package pgliteenv

import (
	"context"
	"log/slog"

	"github.com/giantswarm/pgliteenv/internal/core"
)

// SetLogger replaces the package-level logger used by pgliteenv.
// This allows applications to integrate pgliteenv logging with their own
// logging infrastructure. The provided logger should already have any
// desired attributes; pgliteenv will not add additional attributes.
//
// If l is nil, the logger resets to the default: slog.Default() with
// "component" attribute, re-derived on the next Logger() call and then
// cached. Call SetLogger(nil) after slog.SetDefault() to pick up changes.
//
// Thread safety: SetLogger is safe to call concurrently with other pgliteenv
// operations. Both the custom logger and the cached default are stored as
// atomic pointers, so loads and stores are data-race-free. A concurrent
// logger load during SetLogger always returns a valid *slog.Logger, though
// it may briefly return the previous logger until both atomic stores
// complete. For a strict happens-before guarantee, call SetLogger before
// starting goroutines that use the library (e.g., in TestMain before m.Run).
//
// Example:
//
//	pgliteenv.SetLogger(myLogger.With("component", "pgliteenv"))
func SetLogger(l *slog.Logger) {
	core.SetLogger(l)
}

// levelHandler filters records below min before delegating to the wrapped
// handler. slog has no way to lower a handler's level after construction,
// so WithLogLevel wraps instead.
type levelHandler struct {
	min   slog.Level
	inner slog.Handler
}

func (h levelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.min && h.inner.Enabled(ctx, level)
}

func (h levelHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.inner.Handle(ctx, r)
}

func (h levelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return levelHandler{min: h.min, inner: h.inner.WithAttrs(attrs)}
}

func (h levelHandler) WithGroup(name string) slog.Handler {
	return levelHandler{min: h.min, inner: h.inner.WithGroup(name)}
}

// leveledLogger returns base restricted to records at or above min.
func leveledLogger(base *slog.Logger, min slog.Level) *slog.Logger {
	return slog.New(levelHandler{min: min, inner: base.Handler()})
}
