package process

import (
	"time"
)

// Stoppable is a child process that can be terminated and have its file
// handles released.
type Stoppable interface {
	Stop(timeout time.Duration) error
	Close()
}

// StopCloseAndNil stops *p, closes it, and sets it to nil, in that order.
// Nil p or *p is a no-op returning nil, so teardown paths can call it
// unconditionally.
//
// The constraint requires P to be a pointer type implementing Stoppable,
// which keeps the nil checks plain comparisons; the element type E is
// inferred, callers never spell it out.
//
// Close and the nil-out run even when Stop fails: a process in an unknown
// state must still have its log handles closed and its pointer cleared, or
// a later start cycle would leak them. The Stop error is returned as-is.
func StopCloseAndNil[P interface {
	*E
	Stoppable
}, E any](p *P, timeout time.Duration) error {
	if p == nil || *p == nil {
		return nil
	}
	defer func() {
		(*p).Close()
		*p = nil
	}()
	return (*p).Stop(timeout)
}
