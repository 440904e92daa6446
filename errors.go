package pgliteenv

import "github.com/giantswarm/pgliteenv/internal/core"

// Sentinel errors for error inspection with errors.Is.
// These are immutable constants safe for use in wrapped error chain comparison.
const (
	// ErrInvalidConfig is returned by New when the assembled configuration
	// fails validation, including malformed PGLITE_* environment values.
	ErrInvalidConfig = core.ErrInvalidConfig

	// ErrUnknownExtension is returned by New when WithExtensions (or
	// PGLITE_EXTENSIONS) names an extension the engine does not bundle.
	ErrUnknownExtension = core.ErrUnknownExtension

	// ErrEndpointUnavailable is returned by Start when no listening endpoint
	// could be prepared: the socket directory cannot be created, the socket
	// path exceeds the platform limit for Unix socket paths, or no free TCP
	// port exists in the configured range.
	ErrEndpointUnavailable = core.ErrEndpointUnavailable

	// ErrSpawnFailed is returned by Start when the engine process could not
	// be launched, typically because the node binary is missing or the
	// engine's node modules could not be installed.
	ErrSpawnFailed = core.ErrSpawnFailed

	// ErrCrashedBeforeReady is returned by Start when the engine process
	// exited before it began accepting connections. The error message
	// carries the tail of the engine's output for diagnosis.
	ErrCrashedBeforeReady = core.ErrCrashedBeforeReady

	// ErrReadyTimeout is returned by Start when the engine stayed alive but
	// did not accept connections within the configured timeout.
	ErrReadyTimeout = core.ErrReadyTimeout

	// ErrNotReady is returned by ConnectionInfo and WaitForReady when the
	// manager is not in the Ready state, or when the engine died since it
	// last reported ready.
	ErrNotReady = core.ErrNotReady

	// ErrManagerStopped is returned by Start once the manager has reached a
	// terminal state. Restart is the only operation that re-arms a stopped
	// manager.
	ErrManagerStopped = core.ErrManagerStopped
)
