package core

import "fmt"

// State is the lifecycle state of a Manager. Transitions are driven only
// by Start, Stop, Restart, and the liveness check in ConnectionInfo; no
// background goroutine mutates it.
type State uint32

const (
	// StateIdle is the zero value; New returns a Manager in this state.
	StateIdle State = iota

	// StateStarting is the transient state while Start acquires the work
	// dir, endpoint, process, and readiness.
	StateStarting

	// StateReady means the engine accepts connections and ConnectionInfo
	// is valid.
	StateReady

	// StateStopping is the transient state while Stop tears down.
	StateStopping

	// StateStopped means teardown completed. Terminal for Start.
	StateStopped

	// StateFailed means a start failed after rollback, or a liveness
	// check found the engine dead. Terminal for Start.
	StateFailed
)

// IsValid reports whether s is a recognized State value.
func (s State) IsValid() bool {
	return s <= StateFailed
}

// Terminal reports whether s is an end state. Start refuses to run on a
// terminal Manager so stale socket or file state is never resurrected;
// Restart is the sanctioned re-arm path.
func (s State) Terminal() bool {
	return s == StateStopped || s == StateFailed
}

// String returns the name of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateStarting:
		return "Starting"
	case StateReady:
		return "Ready"
	case StateStopping:
		return "Stopping"
	case StateStopped:
		return "Stopped"
	case StateFailed:
		return "Failed"
	default:
		return fmt.Sprintf("State(%d)", uint32(s))
	}
}
