package pgliteenv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/giantswarm/pgliteenv/internal/core"
)

// ConnectionInfo is the connection descriptor a ready Manager hands to
// database clients: the resolved endpoint plus database, user, and
// password.
//
// ConnectionInfo is a type alias (not a named type) so that the underlying
// [core.ConnectionInfo] methods are part of the public API:
//
//   - URI returns a PostgreSQL connection URL.
//   - DSN returns the keyword/value connection string.
//   - Address returns the endpoint without credentials, for logging.
type ConnectionInfo = core.ConnectionInfo

// Manager runs one embedded PostgreSQL-compatible engine instance through
// its lifecycle: Start spawns the engine subprocess and probes it to
// readiness, ConnectionInfo hands out its endpoint, and Stop tears it
// down. Create one Manager per test fixture; instances are namespaced by
// pid plus a random suffix, so parallel fixtures never collide.
//
// The core.Manager is stored as a named (unexported) field rather than
// embedded to keep internal methods out of the public API.
type Manager struct {
	mgr *core.Manager

	sqlReadyAttempts int
	sqlReadyInterval time.Duration
}

// New assembles a Manager from built-in defaults, PGLITE_* environment
// variables, and the given options, in that order of increasing
// precedence. It performs no process work; call Start to bring the engine
// up.
//
// Returns ErrInvalidConfig when the assembled configuration fails
// validation, including malformed environment values. Unsupported
// extension names additionally match ErrUnknownExtension.
//
// Panics if any option receives an invalid value. See individual With*
// functions for constraints.
func New(opts ...Option) (*Manager, error) {
	cfg := defaultManagerConfig()
	if err := applyEnv(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	mgr, err := core.New(cfg.toCoreConfig())
	if err != nil {
		return nil, err
	}
	return &Manager{
		mgr:              mgr,
		sqlReadyAttempts: cfg.sqlReadyAttempts,
		sqlReadyInterval: cfg.sqlReadyInterval,
	}, nil
}

// Start brings the engine to Ready: it prepares the work directory,
// installs the engine's node modules per the install policy, resolves a
// listening endpoint, spawns the engine subprocess, and waits until it
// accepts connections. Calling Start on a Ready manager is a no-op.
//
// Returns ErrSpawnFailed, ErrEndpointUnavailable, ErrCrashedBeforeReady,
// or ErrReadyTimeout depending on where startup failed; the manager is
// then in StateFailed and only Restart can re-arm it. Once the manager is
// Stopped or Failed, Start returns ErrManagerStopped.
func (m *Manager) Start(ctx context.Context) error {
	return m.mgr.Start(ctx)
}

// Stop terminates the engine (SIGTERM, then SIGKILL after the grace
// period) and removes per-instance files per the cleanup setting. Stop is
// idempotent: stopping an idle or already stopped manager returns nil.
// After Stop the manager is in StateStopped; use Restart to bring the
// engine back.
func (m *Manager) Stop(ctx context.Context) error {
	return m.mgr.Stop(ctx)
}

// Restart stops the engine if it is running and starts a fresh one.
// Unlike Start, Restart re-arms a Stopped or Failed manager; it is the one
// sanctioned path out of a terminal state. The engine holds its data in
// memory, so a restart always yields an empty database.
func (m *Manager) Restart(ctx context.Context) error {
	return m.mgr.Restart(ctx)
}

// State returns the manager's current lifecycle state. Safe to call
// concurrently with lifecycle operations; the result is a snapshot that
// may be stale by the time it is observed.
func (m *Manager) State() State {
	return m.mgr.State()
}

// ID returns the unique instance identifier (pid plus random suffix) that
// namespaces the manager's work directory, socket directory, and journal
// row.
func (m *Manager) ID() string {
	return m.mgr.ID()
}

// WorkDir returns the directory holding the generated runtime and the
// engine's log files, or "" before the first Start.
func (m *Manager) WorkDir() string {
	return m.mgr.WorkDir()
}

// ConnectionInfo returns the connection descriptor for the running engine.
// It doubles as a liveness check: if the engine died since Start reported
// ready, the manager tears down its remains, moves to StateFailed, and
// returns ErrNotReady with the tail of the engine's output.
//
// Returns ErrNotReady when the manager is not Ready.
func (m *Manager) ConnectionInfo() (*ConnectionInfo, error) {
	return m.mgr.ConnectionInfo()
}

// WaitForReady confirms the engine answers SQL, not just connections: it
// dials the engine and runs SELECT 1, retrying per the configured attempt
// budget (see WithSQLReadyAttempts and WithSQLReadyInterval). Start's own
// readiness probe only establishes connectivity; call WaitForReady when a
// test needs the stronger guarantee before issuing queries.
//
// Returns ErrNotReady when the manager is not Ready or the probe budget
// runs out.
func (m *Manager) WaitForReady(ctx context.Context) error {
	return m.mgr.WaitForReady(ctx, m.sqlReadyAttempts, m.sqlReadyInterval)
}

// Run starts a fresh engine, hands its connection descriptor to fn, and
// stops the engine when fn returns. The engine is stopped even when fn
// returns an error or the context is canceled mid-call; a stop failure
// joins fn's error. This is the scoped alternative to managing Start and
// Stop by hand:
//
//	err := pgliteenv.Run(ctx, func(ctx context.Context, info *pgliteenv.ConnectionInfo) error {
//		conn, err := pgx.Connect(ctx, info.URI())
//		...
//	})
func Run(ctx context.Context, fn func(context.Context, *ConnectionInfo) error, opts ...Option) (err error) {
	m, err := New(opts...)
	if err != nil {
		return err
	}
	defer func() {
		// Stop must run even when ctx was canceled mid-fn; otherwise the
		// engine would outlive the test that spawned it.
		err = errors.Join(err, m.Stop(context.WithoutCancel(ctx)))
	}()
	if err := m.Start(ctx); err != nil {
		return err
	}
	info, err := m.ConnectionInfo()
	if err != nil {
		return err
	}
	return fn(ctx, info)
}

// StartWithRetry brings m to Ready, making up to attempts total attempts
// spaced by DefaultStartRetryInterval. A failed attempt leaves the manager
// in StateFailed, so each retry goes through Restart, which re-arms it.
// Useful on CI machines where the first engine start races slow npm
// installs or port churn.
//
// Configuration errors are not retried: an attempt failing with
// ErrInvalidConfig or ErrUnknownExtension returns immediately, since the
// same error would come back every time.
//
// Returns nil as soon as an attempt succeeds, otherwise the last
// attempt's error.
//
// Panics if attempts <= 0.
func StartWithRetry(ctx context.Context, m *Manager, attempts int) error {
	requirePositive("attempts", attempts)

	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewConstant(DefaultStartRetryInterval)) //nolint:gosec // attempts >= 1 was checked above
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := m.Restart(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrInvalidConfig) || errors.Is(err, ErrUnknownExtension) {
			return err
		}
		return retry.RetryableError(err)
	})
}
