package pgliteenv

import "github.com/giantswarm/pgliteenv/internal/core"

// State describes where a Manager sits in its lifecycle. A Manager moves
// strictly forward through the states; only Restart moves it backward.
//
// State is a type alias (not a named type) so that the underlying
// [core.State] methods are part of the public API:
//
//   - IsValid reports whether the value is a recognized state.
//   - Terminal reports whether the state blocks Start.
//   - String returns the state name (implements [fmt.Stringer]).
//
// This is intentional: callers can validate and print state values without
// the public package needing to redeclare these methods.
type State = core.State

const (
	// StateIdle is the zero value: the Manager was created but Start has
	// not been called.
	StateIdle = core.StateIdle

	// StateStarting means Start is in progress: the endpoint is being
	// resolved, dependencies installed, and the engine spawned and probed.
	StateStarting = core.StateStarting

	// StateReady means the engine accepted a connection probe and
	// ConnectionInfo is available.
	StateReady = core.StateReady

	// StateStopping means Stop is in progress: the engine is being
	// terminated and per-instance files removed.
	StateStopping = core.StateStopping

	// StateStopped is terminal: Stop completed. Start returns
	// ErrManagerStopped; use Restart to bring the engine back.
	StateStopped = core.StateStopped

	// StateFailed is terminal: Start failed or the engine died while the
	// manager believed it was ready. Start returns ErrManagerStopped; use
	// Restart to try again.
	StateFailed = core.StateFailed
)
