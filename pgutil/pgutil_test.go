package pgutil_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/giantswarm/pgliteenv/pgutil"
)

func TestMajorVersion(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		version string
		want    int
		wantErr bool
	}{
		"full version string": {
			version: "PostgreSQL 17.4 on x86_64-pc-linux-gnu, compiled by gcc",
			want:    17,
		},
		"bare server_version": {
			version: "17.4",
			want:    17,
		},
		"major only": {
			version: "16",
			want:    16,
		},
		"devel suffix": {
			version: "PostgreSQL 18devel on aarch64-apple-darwin",
			want:    18,
		},
		"legacy two-part major": {
			version: "9.6.24",
			want:    9,
		},
		"no digits": {
			version: "PostgreSQL (unknown)",
			wantErr: true,
		},
		"empty": {
			version: "",
			wantErr: true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := pgutil.MajorVersion(tc.version)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("MajorVersion(%q) = %d, want error", tc.version, got)
				}
				if !strings.Contains(err.Error(), "no major version") {
					t.Errorf("error = %q, want it to mention the missing major version", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("MajorVersion(%q) error: %v", tc.version, err)
			}
			if got != tc.want {
				t.Errorf("MajorVersion(%q) = %d, want %d", tc.version, got, tc.want)
			}
		})
	}
}

// The query helpers share one connect path; a malformed connection string
// must surface the same way from each of them.
func TestHelpersRejectMalformedConnString(t *testing.T) {
	t.Parallel()

	const bad = "postgresql://%zz"
	ctx := t.Context()

	if err := pgutil.Ping(ctx, bad); err == nil {
		t.Error("Ping() succeeded with a malformed connection string")
	}
	if _, err := pgutil.ServerVersion(ctx, bad); err == nil {
		t.Error("ServerVersion() succeeded with a malformed connection string")
	}
	if _, err := pgutil.TableNames(ctx, bad, ""); err == nil {
		t.Error("TableNames() succeeded with a malformed connection string")
	}
	if _, err := pgutil.TableExists(ctx, bad, "", "users"); err == nil {
		t.Error("TableExists() succeeded with a malformed connection string")
	}
	if _, err := pgutil.Exec(ctx, bad, "SELECT 1"); err == nil {
		t.Error("Exec() succeeded with a malformed connection string")
	}
	if _, err := pgutil.Query(ctx, bad, "SELECT 1"); err == nil {
		t.Error("Query() succeeded with a malformed connection string")
	}
}

// An unreachable endpoint should fail the dial within the context budget
// rather than hanging.
func TestPingUnreachableEndpoint(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	defer cancel()

	err := pgutil.Ping(ctx, "postgresql://postgres:postgres@/postgres?host=%2Fnonexistent%2Fsocket%2Fdir")
	if err == nil {
		t.Fatal("Ping() succeeded against a nonexistent socket dir")
	}
}
