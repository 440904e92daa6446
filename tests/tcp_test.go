//go:build integration

package pgliteenv_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/giantswarm/pgliteenv"
	"github.com/giantswarm/pgliteenv/pgutil"
)

// =============================================================================
// TCP Transport Tests
// =============================================================================

// TestTCPTransport runs an engine on a kernel-assigned loopback port and
// talks SQL to it over TCP.
func TestTCPTransport(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m := startManager(t, pgliteenv.WithTCP())

	info, err := m.ConnectionInfo()
	if err != nil {
		t.Fatalf("Failed to get connection info: %v", err)
	}
	if info.Transport != pgliteenv.TransportTCP {
		t.Fatalf("Transport = %v, want %v", info.Transport, pgliteenv.TransportTCP)
	}
	if info.Host != pgliteenv.DefaultTCPHost {
		t.Errorf("Host = %q, want %q", info.Host, pgliteenv.DefaultTCPHost)
	}
	if info.Port <= 0 {
		t.Fatalf("Port = %d, want a positive kernel-assigned port", info.Port)
	}
	if !strings.Contains(info.URI(), info.Address()) {
		t.Errorf("URI %q should embed the address %q", info.URI(), info.Address())
	}

	uri := info.URI()
	if err := pgutil.Ping(ctx, uri); err != nil {
		t.Fatalf("Failed to ping engine over TCP: %v", err)
	}
	if _, err := pgutil.Exec(ctx, uri, "CREATE TABLE tcp_check (id int)"); err != nil {
		t.Fatalf("Failed to run DDL over TCP: %v", err)
	}

	t.Logf("engine %s serving on %s", m.ID(), info.Address())
}

// TestTCPPortRange verifies that a configured port range constrains the
// chosen port.
func TestTCPPortRange(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	const rangeStart, rangeEnd = 26000, 26099

	m := startManager(t, pgliteenv.WithTCPPortRange(rangeStart, rangeEnd))

	info, err := m.ConnectionInfo()
	if err != nil {
		t.Fatalf("Failed to get connection info: %v", err)
	}
	if info.Port < rangeStart || info.Port > rangeEnd {
		t.Fatalf("Port %d outside configured range [%d, %d]", info.Port, rangeStart, rangeEnd)
	}
	if err := pgutil.Ping(ctx, info.URI()); err != nil {
		t.Fatalf("Failed to ping engine on ranged port: %v", err)
	}
}

// TestTCPManagersGetDistinctPorts verifies that two TCP engines in the same
// process never collide on a port.
func TestTCPManagersGetDistinctPorts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m1 := startManager(t, pgliteenv.WithTCP())
	m2 := startManager(t, pgliteenv.WithTCP())

	info1, err := m1.ConnectionInfo()
	if err != nil {
		t.Fatalf("Failed to get first connection info: %v", err)
	}
	info2, err := m2.ConnectionInfo()
	if err != nil {
		t.Fatalf("Failed to get second connection info: %v", err)
	}
	if info1.Port == info2.Port {
		t.Fatalf("Both engines claimed port %d", info1.Port)
	}

	for i, uri := range []string{info1.URI(), info2.URI()} {
		if err := pgutil.Ping(ctx, uri); err != nil {
			t.Fatalf("Failed to ping engine %d: %v", i+1, err)
		}
	}
}

// TestTCPURIFormat checks the URI shape against what PostgreSQL clients
// expect for host/port connections.
func TestTCPURIFormat(t *testing.T) {
	t.Parallel()

	m := startManager(t, pgliteenv.WithTCP(), pgliteenv.WithDatabase("appdb"),
		pgliteenv.WithCredentials("svc", "sekrit"))

	info, err := m.ConnectionInfo()
	if err != nil {
		t.Fatalf("Failed to get connection info: %v", err)
	}

	want := fmt.Sprintf("postgresql://svc:sekrit@%s/appdb?sslmode=disable", info.Address())
	if info.URI() != want {
		t.Errorf("URI = %q, want %q", info.URI(), want)
	}
}
