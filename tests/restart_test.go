//go:build integration

package pgliteenv_test

import (
	"context"
	"errors"
	"testing"

	"github.com/giantswarm/pgliteenv"
	"github.com/giantswarm/pgliteenv/pgutil"
)

// =============================================================================
// Restart Tests
// =============================================================================

// TestRestartDiscardsData verifies that Restart replaces the in-memory
// engine wholesale: schema created before the restart is gone after it.
func TestRestartDiscardsData(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m := startManager(t)
	uri := connString(t, m)

	if _, err := pgutil.Exec(ctx, uri, "CREATE TABLE ephemeral (id int)"); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}
	exists, err := pgutil.TableExists(ctx, uri, "", "ephemeral")
	if err != nil {
		t.Fatalf("TableExists before restart failed: %v", err)
	}
	if !exists {
		t.Fatal("Table should exist before restart")
	}

	if err = m.Restart(ctx); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}
	if err = m.WaitForReady(ctx); err != nil {
		t.Fatalf("Engine not SQL-ready after restart: %v", err)
	}

	// The endpoint may have moved (fresh socket dir), so re-read it.
	uri = connString(t, m)

	exists, err = pgutil.TableExists(ctx, uri, "", "ephemeral")
	if err != nil {
		t.Fatalf("TableExists after restart failed: %v", err)
	}
	if exists {
		t.Error("Table survived restart; expected a fresh in-memory engine")
	}
}

// TestRestartAfterStop verifies that Restart re-arms a stopped manager,
// which Start alone refuses to do.
func TestRestartAfterStop(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m := startManager(t)

	if err := m.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if got := m.State(); got != pgliteenv.StateStopped {
		t.Fatalf("State after Stop = %v, want %v", got, pgliteenv.StateStopped)
	}

	if err := m.Start(ctx); !errors.Is(err, pgliteenv.ErrManagerStopped) {
		t.Fatalf("Start on stopped manager = %v, want %v", err, pgliteenv.ErrManagerStopped)
	}

	if err := m.Restart(ctx); err != nil {
		t.Fatalf("Restart after Stop failed: %v", err)
	}
	if err := m.WaitForReady(ctx); err != nil {
		t.Fatalf("Engine not SQL-ready after restart: %v", err)
	}
	if err := pgutil.Ping(ctx, connString(t, m)); err != nil {
		t.Fatalf("Failed to ping restarted engine: %v", err)
	}
}
