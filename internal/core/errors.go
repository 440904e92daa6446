package core

import (
	"github.com/giantswarm/pgliteenv/internal/endpoint"
	"github.com/giantswarm/pgliteenv/internal/engine"
	"github.com/giantswarm/pgliteenv/internal/probe"
	"github.com/giantswarm/pgliteenv/internal/sentinel"
)

// ErrInvalidConfig is returned by New for invalid or contradictory
// options. It fails fast at construction and never reaches the process
// layer.
const ErrInvalidConfig = sentinel.Error("invalid configuration")

// ErrSpawnFailed is returned by Start when the engine subprocess could
// not be brought up: missing node binary, a failed dependency install, or
// the spawn call itself failing.
const ErrSpawnFailed = sentinel.Error("engine spawn failed")

// ErrNotReady is returned by operations that require the Ready state when
// the Manager is in any other state.
const ErrNotReady = sentinel.Error("manager is not ready")

// ErrManagerStopped is returned by Start on a terminal (Stopped or
// Failed) Manager. Use Restart to re-arm, or create a new Manager.
const ErrManagerStopped = sentinel.Error("manager is stopped")

// ErrUnknownExtension is re-exported from engine so the public API imports
// only from core, preserving the layering: public API → core → engine.
const ErrUnknownExtension = engine.ErrUnknownExtension

// ErrEndpointUnavailable is re-exported from endpoint so the public API
// imports only from core, preserving the layering: public API → core →
// endpoint.
const ErrEndpointUnavailable = endpoint.ErrUnavailable

// ErrCrashedBeforeReady is re-exported from probe so the public API
// imports only from core, preserving the layering: public API → core →
// probe. It is returned by Start when the engine exits during the
// readiness wait.
const ErrCrashedBeforeReady = probe.ErrProcessExited

// ErrReadyTimeout is re-exported from probe so the public API imports
// only from core, preserving the layering: public API → core → probe. It
// is returned by Start when the readiness wait exceeds the configured
// timeout while the engine stays alive.
const ErrReadyTimeout = probe.ErrTimedOut
