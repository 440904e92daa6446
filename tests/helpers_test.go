//go:build integration

package pgliteenv_test

import (
	"context"
	"testing"
	"time"

	"github.com/giantswarm/pgliteenv"
	"github.com/giantswarm/pgliteenv/tests/internal/testutil"
)

// uniqueName returns a name that is unique across all parallel tests.
func uniqueName(prefix string) string {
	return testutil.UniqueName(prefix)
}

// startManager creates a manager pinned to a fresh work dir under the
// shared runtime, starts it, and waits until it answers SQL. The engine is
// stopped via t.Cleanup. Options given by the caller are applied after the
// defaults, so tests can override anything.
func startManager(t *testing.T, opts ...pgliteenv.Option) *pgliteenv.Manager {
	t.Helper()
	ctx := context.Background()

	base := []pgliteenv.Option{
		pgliteenv.WithWorkDir(testutil.FreshWorkDir("engine")),
		pgliteenv.WithTimeout(2 * time.Minute),
	}
	m, err := pgliteenv.New(append(base, opts...)...)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	t.Cleanup(func() {
		if err := m.Stop(context.Background()); err != nil {
			t.Logf("stop error: %v", err)
		}
	})

	if err := m.Start(ctx); err != nil {
		t.Fatalf("Failed to start engine: %v", err)
	}
	if err := m.WaitForReady(ctx); err != nil {
		t.Fatalf("Engine never became SQL-ready: %v", err)
	}
	return m
}

// connString returns the manager's URI, failing the test if the engine is
// not ready.
func connString(t *testing.T, m *pgliteenv.Manager) string {
	t.Helper()

	info, err := m.ConnectionInfo()
	if err != nil {
		t.Fatalf("Failed to get connection info: %v", err)
	}
	return info.URI()
}
