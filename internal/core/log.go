package core

import (
	"log/slog"
	"sync/atomic"
)

// logger holds the module-wide logger behind an atomic pointer so reads
// and replacements never race. The name avoids shadowing the stdlib log
// package.
//
// nil means nobody called SetLogger; Logger falls back to the cached
// slog.Default derivative below.
var logger atomic.Pointer[slog.Logger]

// defaultLogger caches slog.Default().With("component", "pgliteenv") so
// the fallback path does not re-derive it on every call. The cache goes
// stale if slog.SetDefault runs afterwards; SetLogger(nil) clears it, so
// callers who change the process default can force a re-derive.
var defaultLogger atomic.Pointer[slog.Logger]

// Logger returns the logger every package in this module writes through.
// Without a SetLogger call it derives one from slog.Default, caches it,
// and keeps returning the cached value. Safe for concurrent use.
func Logger() *slog.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	if l := defaultLogger.Load(); l != nil {
		return l
	}
	l := newDefaultLogger()
	// CAS so a concurrent first caller's cached value wins over ours.
	if defaultLogger.CompareAndSwap(nil, l) {
		return l
	}
	// Lost the race. A concurrent SetLogger may have cleared the cache
	// again between the CAS and this load; the local value covers that
	// case so nil is never returned.
	if l2 := defaultLogger.Load(); l2 != nil {
		return l2
	}
	return l
}

// newDefaultLogger derives the fallback logger from the process default.
func newDefaultLogger() *slog.Logger {
	return slog.Default().With("component", "pgliteenv")
}

// SetLogger installs l as the module-wide logger. Passing nil reverts to
// the slog.Default derivative, picked up fresh on the next Logger call.
// Concurrent use is fine.
func SetLogger(l *slog.Logger) {
	logger.Store(l)
	// Drop the cached default too. That is what lets SetLogger(nil)
	// observe a later slog.SetDefault.
	defaultLogger.Store(nil)
}
