package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	// Register the pure-Go SQLite driver (no CGO required).
	_ "modernc.org/sqlite"

	"github.com/giantswarm/pgliteenv/internal/fileutil"
)

// schema holds one row per engine instance. Rows are written when an
// instance reaches Ready and deleted on teardown; rows that outlive their
// owner are orphans, reclaimed by Sweep.
const schema = `
CREATE TABLE IF NOT EXISTS instances (
	id         TEXT PRIMARY KEY,
	owner_pid  INTEGER NOT NULL,
	engine_pid INTEGER NOT NULL,
	transport  TEXT NOT NULL,
	endpoint   TEXT NOT NULL,
	socket_dir TEXT NOT NULL DEFAULT '',
	work_dir   TEXT NOT NULL,
	ephemeral  INTEGER NOT NULL DEFAULT 0,
	started_at INTEGER NOT NULL
);
`

// Instance is one journal row describing a running engine.
type Instance struct {
	// ID uniquely identifies the instance (pid plus random suffix).
	ID string

	// OwnerPid is the process that manages the instance. While it is
	// alive the instance is in use; once it is gone the row describes an
	// orphan.
	OwnerPid int

	// EnginePid is the engine subprocess itself, the pid Sweep terminates
	// after verifying its identity.
	EnginePid int

	// Transport is "unix" or "tcp"; Endpoint is the socket path or
	// host:port, for diagnostics.
	Transport string
	Endpoint  string

	// SocketDir is set only when the socket directory was created for
	// this instance and may be removed with it. Pinned, caller-owned
	// directories are recorded as "" so Sweep never touches them.
	SocketDir string

	// WorkDir holds the generated runtime and engine state. Ephemeral
	// marks it as created for this instance, so Sweep may remove it.
	WorkDir   string
	Ephemeral bool

	StartedAt time.Time
}

// validate returns an error describing the first missing or invalid field.
func (i Instance) validate() error {
	if i.ID == "" {
		return errors.New("instance id must not be empty")
	}
	if i.OwnerPid <= 0 {
		return errors.New("owner pid must be positive")
	}
	if i.EnginePid <= 0 {
		return errors.New("engine pid must be positive")
	}
	if i.Transport == "" {
		return errors.New("transport must not be empty")
	}
	if i.WorkDir == "" {
		return errors.New("work dir must not be empty")
	}
	return nil
}

// DefaultPath returns the default registry database location, shared by
// all processes on the host so any of them can sweep orphans.
func DefaultPath() string {
	return filepath.Join(os.TempDir(), "pgliteenv-registry.db")
}

// Registry is a SQLite-backed journal of engine instances. It replaces an
// implicit process-wide cleanup hook with an explicit, injectable object:
// nothing is registered unless a manager is handed a Registry, and orphans
// are reclaimed only by an explicit Sweep call.
type Registry struct {
	db   *sql.DB
	path string
	log  *slog.Logger
}

// Open opens (creating if needed) the registry database at path. An empty
// path selects DefaultPath. The returned Registry is safe for concurrent
// use within a process; cross-process concurrency is handled by SQLite's
// own locking with a busy timeout.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		path = DefaultPath()
	}
	if err := fileutil.EnsureDirForFile(path); err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}

	// WAL so concurrent test processes do not block each other on reads,
	// a busy timeout for write contention, and NORMAL synchronous mode:
	// the journal is reconstructible bookkeeping, not durable data.
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)",
		path,
	)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open registry %s: %w", path, err)
	}

	// Single connection — the registry sees a handful of statements per
	// test run, not a workload worth pooling.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create registry schema: %w", err)
	}

	return &Registry{db: db, path: path, log: logger}, nil
}

// Path returns the database file location.
func (r *Registry) Path() string {
	return r.path
}

// Record journals an instance, replacing any previous row with the same
// id (a restarted instance keeps its identity but changes endpoint and
// engine pid).
func (r *Registry) Record(ctx context.Context, inst Instance) error {
	if err := inst.validate(); err != nil {
		return fmt.Errorf("record instance: %w", err)
	}

	const stmt = `
		INSERT OR REPLACE INTO instances
		(id, owner_pid, engine_pid, transport, endpoint, socket_dir, work_dir, ephemeral, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	startedAt := inst.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, stmt,
		inst.ID, inst.OwnerPid, inst.EnginePid, inst.Transport, inst.Endpoint,
		inst.SocketDir, inst.WorkDir, boolToInt(inst.Ephemeral), startedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("record instance %s: %w", inst.ID, err)
	}
	return nil
}

// Remove deletes the row for id. Removing an absent row is a no-op, so
// teardown can call it unconditionally.
func (r *Registry) Remove(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM instances WHERE id = ?`, id); err != nil {
		return fmt.Errorf("remove instance %s: %w", id, err)
	}
	return nil
}

// List returns all journaled instances, oldest first.
func (r *Registry) List(ctx context.Context) ([]Instance, error) {
	const query = `
		SELECT id, owner_pid, engine_pid, transport, endpoint, socket_dir, work_dir, ephemeral, started_at
		FROM instances ORDER BY started_at, id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list instances: %w", err)
	}
	defer rows.Close() //nolint:errcheck // rows.Err() below catches read errors; Close error is redundant

	var instances []Instance
	for rows.Next() {
		var (
			inst      Instance
			ephemeral int
			startedAt int64
		)
		err := rows.Scan(&inst.ID, &inst.OwnerPid, &inst.EnginePid, &inst.Transport,
			&inst.Endpoint, &inst.SocketDir, &inst.WorkDir, &ephemeral, &startedAt)
		if err != nil {
			return nil, fmt.Errorf("scan instance row: %w", err)
		}
		inst.Ephemeral = ephemeral != 0
		inst.StartedAt = time.Unix(startedAt, 0)
		instances = append(instances, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate instance rows: %w", err)
	}

	return instances, nil
}

// Close closes the underlying database.
func (r *Registry) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("close registry: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
