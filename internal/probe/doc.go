// Package probe implements polling-based readiness detection for engine
// endpoints.
//
// Wait repeatedly invokes a caller-supplied Check at a fixed interval until
// the endpoint accepts, the overall timeout elapses, or the supervised
// process exits. The process-exit short circuit distinguishes a crashed
// engine (ErrProcessExited) from one that is alive but never came up
// (ErrTimedOut), so callers can surface the right failure immediately
// instead of always waiting out the timeout.
package probe
