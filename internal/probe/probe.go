package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/giantswarm/pgliteenv/internal/sentinel"
)

// Sentinel errors returned by Wait for invalid configuration and process
// lifecycle conditions. Callers can match these with errors.Is through
// wrapped error chains.
const (
	// ErrIntervalNotPositive indicates a non-positive poll interval.
	ErrIntervalNotPositive = sentinel.Error("interval must be positive")

	// ErrTimeoutNotPositive indicates a non-positive timeout.
	ErrTimeoutNotPositive = sentinel.Error("timeout must be positive")

	// ErrProcessExited indicates the process exited before becoming ready.
	ErrProcessExited = sentinel.Error("process exited before becoming ready")

	// ErrTimedOut indicates the process stayed alive but the endpoint never
	// accepted a connection within the timeout.
	ErrTimedOut = sentinel.Error("timed out waiting for readiness")
)

// errNotAccepting marks a single failed attempt inside the polling loop.
// It never escapes Wait; exhaustion is translated to ErrTimedOut.
const errNotAccepting = sentinel.Error("endpoint not accepting connections")

// Check is a function that checks if an endpoint is ready.
// The context is canceled when the polling loop times out or the caller
// cancels, allowing checks (e.g., socket dials) to exit promptly.
// The attempt parameter is 1-based (first call receives attempt=1).
// It returns true when ready, false to continue polling.
// The error return is for fatal errors that should abort polling.
type Check func(ctx context.Context, attempt int) (ready bool, err error)

// Config configures the wait behavior.
type Config struct {
	Interval      time.Duration   // Poll interval
	Timeout       time.Duration   // Overall timeout
	Name          string          // For logging (e.g., "pglite")
	Endpoint      string          // For logging and error context
	Logger        *slog.Logger    // Optional logger (defaults to slog.Default())
	ProcessExited <-chan struct{} // If non-nil, abort immediately when closed (process died)
}

// Wait polls until the check function reports ready, a fatal error occurs,
// the process exits, or the timeout elapses. At least one attempt is always
// made, even when Timeout < Interval.
//
// Before every attempt the ProcessExited channel is consulted, so a child
// that dies right after spawn fails the wait within one interval instead of
// burning the whole timeout. That failure carries ErrProcessExited;
// plain exhaustion carries ErrTimedOut.
//
// The returned duration is the time spent polling, reported on both success
// and failure for startup diagnostics.
func Wait(ctx context.Context, cfg Config, check Check) (time.Duration, error) {
	if cfg.Name == "" {
		return 0, errors.New("wait ready: name must not be empty")
	}
	if cfg.Interval <= 0 {
		return 0, fmt.Errorf("wait for %s: %w", cfg.Name, ErrIntervalNotPositive)
	}
	if cfg.Timeout <= 0 {
		return 0, fmt.Errorf("wait for %s: %w", cfg.Name, ErrTimeoutNotPositive)
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	start := time.Now()

	// attempt is safe to increment without synchronization because retry.Do
	// invokes the function sequentially: each call completes before the next
	// is scheduled. The closure is never called concurrently with itself.
	attempt := 0
	backoff := retry.WithMaxDuration(cfg.Timeout, retry.NewConstant(cfg.Interval))
	err := retry.Do(ctx, backoff, func(pollCtx context.Context) error {
		// Check if the process has exited before attempting the readiness
		// check. Returned unwrapped (not retryable) so retry.Do aborts
		// immediately.
		if cfg.ProcessExited != nil {
			select {
			case <-cfg.ProcessExited:
				return fmt.Errorf("process %s: %w", cfg.Name, ErrProcessExited)
			default:
			}
		}

		attempt++
		ready, err := check(pollCtx, attempt)
		if err != nil {
			// Fatal error - abort polling
			return err
		}
		if !ready {
			return retry.RetryableError(errNotAccepting)
		}
		return nil
	})

	elapsed := time.Since(start)
	if err != nil {
		// retry.Do returns the unwrapped retryable error once the backoff
		// budget is exhausted; that is the alive-but-never-ready case.
		if errors.Is(err, errNotAccepting) {
			return elapsed, fmt.Errorf("wait for %s readiness at %s: %w after %d attempts in %s",
				cfg.Name, cfg.Endpoint, ErrTimedOut, attempt, elapsed.Round(time.Millisecond))
		}
		return elapsed, fmt.Errorf("wait for %s readiness at %s: %w", cfg.Name, cfg.Endpoint, err)
	}

	log.Debug("wait succeeded",
		"name", cfg.Name, "endpoint", cfg.Endpoint, "attempt", attempt, "elapsed", elapsed)
	return elapsed, nil
}
