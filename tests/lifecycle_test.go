//go:build integration

package pgliteenv_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/giantswarm/pgliteenv"
	"github.com/giantswarm/pgliteenv/pgutil"
)

// =============================================================================
// Engine Lifecycle Tests
// =============================================================================

// TestBasicUsage shows a simple example of using pgliteenv: start an engine,
// run a query over the Unix socket, stop it.
func TestBasicUsage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	startTime := time.Now()

	m := startManager(t)
	uri := connString(t, m)

	if err := pgutil.Ping(ctx, uri); err != nil {
		t.Fatalf("Failed to ping engine: %v", err)
	}

	version, err := pgutil.ServerVersion(ctx, uri)
	if err != nil {
		t.Fatalf("Failed to query server version: %v", err)
	}
	if !strings.Contains(version, "PostgreSQL") {
		t.Errorf("Server version should mention PostgreSQL, got %q", version)
	}

	major, err := pgutil.MajorVersion(version)
	if err != nil {
		t.Fatalf("Failed to parse major version from %q: %v", version, err)
	}
	if major < 15 {
		t.Errorf("Expected PostgreSQL 15+, got major version %d", major)
	}

	t.Logf("engine %s running %s (total test time: %v)", m.ID(), version, time.Since(startTime))
}

// TestStartIdempotent verifies that calling Start on a running manager is a
// no-op and the engine keeps answering queries.
func TestStartIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m := startManager(t)

	if err := m.Start(ctx); err != nil {
		t.Fatalf("Second Start failed: %v", err)
	}
	if got := m.State(); got != pgliteenv.StateReady {
		t.Fatalf("State after double Start = %v, want %v", got, pgliteenv.StateReady)
	}
	if err := pgutil.Ping(ctx, connString(t, m)); err != nil {
		t.Fatalf("Engine unreachable after double Start: %v", err)
	}
}

// TestSQLRoundTrip runs DDL and DML through the engine and reads the
// results back, covering the schema inspection helpers along the way.
func TestSQLRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m := startManager(t)
	uri := connString(t, m)

	table := strings.ReplaceAll(uniqueName("users"), "-", "_")

	exists, err := pgutil.TableExists(ctx, uri, "", table)
	if err != nil {
		t.Fatalf("TableExists before create failed: %v", err)
	}
	if exists {
		t.Fatalf("Table %q should not exist yet", table)
	}

	if _, err = pgutil.Exec(ctx, uri,
		"CREATE TABLE "+table+" (id serial PRIMARY KEY, name text NOT NULL)"); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}

	affected, err := pgutil.Exec(ctx, uri,
		"INSERT INTO "+table+" (name) VALUES ($1), ($2), ($3)", "ada", "grace", "edsger")
	if err != nil {
		t.Fatalf("Failed to insert rows: %v", err)
	}
	if affected != 3 {
		t.Errorf("Insert affected %d rows, want 3", affected)
	}

	exists, err = pgutil.TableExists(ctx, uri, "", table)
	if err != nil {
		t.Fatalf("TableExists after create failed: %v", err)
	}
	if !exists {
		t.Errorf("Table %q should exist after CREATE TABLE", table)
	}

	names, err := pgutil.TableNames(ctx, uri, "")
	if err != nil {
		t.Fatalf("Failed to list tables: %v", err)
	}
	found := false
	for _, name := range names {
		if name == table {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("Table list %v should contain %q", names, table)
	}

	rows, err := pgutil.Query(ctx, uri,
		"SELECT name FROM "+table+" WHERE id > $1 ORDER BY id", 1)
	if err != nil {
		t.Fatalf("Failed to query rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Query returned %d rows, want 2", len(rows))
	}
	if got := rows[0][0]; got != "grace" {
		t.Errorf("First row = %v, want grace", got)
	}
	if got := rows[1][0]; got != "edsger" {
		t.Errorf("Second row = %v, want edsger", got)
	}
}

// TestConnectionStringFormats verifies that both the URI and the key/value
// DSN form of the connection info reach the same engine.
func TestConnectionStringFormats(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m := startManager(t)

	info, err := m.ConnectionInfo()
	if err != nil {
		t.Fatalf("Failed to get connection info: %v", err)
	}

	for _, tc := range []struct {
		name string
		conn string
	}{
		{"uri", info.URI()},
		{"dsn", info.DSN()},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if err := pgutil.Ping(ctx, tc.conn); err != nil {
				t.Fatalf("Failed to connect with %s %q: %v", tc.name, tc.conn, err)
			}
		})
	}
}

// TestParallelManagers verifies that two engines run side by side with
// fully isolated data directories.
func TestParallelManagers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m1 := startManager(t)
	m2 := startManager(t)

	if m1.ID() == m2.ID() {
		t.Fatalf("Expected distinct manager IDs, both are %s", m1.ID())
	}

	uri1 := connString(t, m1)
	uri2 := connString(t, m2)

	if _, err := pgutil.Exec(ctx, uri1, "CREATE TABLE only_here (id int)"); err != nil {
		t.Fatalf("Failed to create table on first engine: %v", err)
	}

	exists, err := pgutil.TableExists(ctx, uri2, "", "only_here")
	if err != nil {
		t.Fatalf("TableExists on second engine failed: %v", err)
	}
	if exists {
		t.Error("Table created on first engine leaked into second engine")
	}
}

// =============================================================================
// Extension Tests
// =============================================================================

// TestExtensions loads bundled extensions at engine start and verifies
// their SQL surface actually works.
func TestExtensions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m := startManager(t, pgliteenv.WithExtensions("pg_trgm", "pgvector"))
	uri := connString(t, m)

	t.Run("pg_trgm", func(t *testing.T) {
		if _, err := pgutil.Exec(ctx, uri, "CREATE EXTENSION IF NOT EXISTS pg_trgm"); err != nil {
			t.Fatalf("Failed to create pg_trgm extension: %v", err)
		}
		rows, err := pgutil.Query(ctx, uri, "SELECT similarity('hello', 'hallo')")
		if err != nil {
			t.Fatalf("similarity query failed: %v", err)
		}
		if len(rows) != 1 || len(rows[0]) != 1 {
			t.Fatalf("similarity query returned %v, want a single value", rows)
		}
		t.Logf("similarity('hello', 'hallo') = %v", rows[0][0])
	})

	t.Run("pgvector", func(t *testing.T) {
		if _, err := pgutil.Exec(ctx, uri, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
			t.Fatalf("Failed to create vector extension: %v", err)
		}
		if _, err := pgutil.Exec(ctx, uri,
			"CREATE TABLE embeddings (id serial PRIMARY KEY, vec vector(3))"); err != nil {
			t.Fatalf("Failed to create vector table: %v", err)
		}
		if _, err := pgutil.Exec(ctx, uri,
			"INSERT INTO embeddings (vec) VALUES ('[1,2,3]'), ('[4,5,6]')"); err != nil {
			t.Fatalf("Failed to insert vectors: %v", err)
		}
		rows, err := pgutil.Query(ctx, uri,
			"SELECT id FROM embeddings ORDER BY vec <-> '[1,2,2]' LIMIT 1")
		if err != nil {
			t.Fatalf("Nearest-neighbor query failed: %v", err)
		}
		if len(rows) != 1 {
			t.Fatalf("Nearest-neighbor query returned %d rows, want 1", len(rows))
		}
	})
}
