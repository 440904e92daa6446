package pgliteenv

import (
	"context"

	"github.com/giantswarm/pgliteenv/internal/core"
	"github.com/giantswarm/pgliteenv/internal/registry"
)

// Registry is a SQLite-backed journal of running engine instances, shared
// across processes via a database file in the system temp directory. A
// Manager handed a Registry via WithRegistry records its engine there for
// the lifetime of the run; Sweep later reclaims engines whose owning test
// process died without stopping them.
//
// Registry is a type alias (not a named type) so that the underlying
// [registry.Registry] methods are part of the public API:
//
//   - Record and Remove maintain journal rows.
//   - List returns the current rows.
//   - Sweep terminates verified orphans, removes their files, and deletes
//     their rows.
//   - Path returns the database file location; Close releases it.
type Registry = registry.Registry

// RegistryInstance is one journal row describing a running engine: its
// instance ID, owning and engine process IDs, endpoint, and the
// directories that may be reclaimed with it.
type RegistryInstance = registry.Instance

// SweepStats summarizes one Registry.Sweep pass: rows scanned, instances
// skipped because their owner is alive or their engine could not be
// verified, engines killed, and rows and directories removed.
type SweepStats = registry.SweepStats

// DefaultRegistryPath returns the default registry database location,
// shared by all processes on the host so any of them can sweep orphans.
func DefaultRegistryPath() string {
	return registry.DefaultPath()
}

// OpenRegistry opens (creating if needed) the registry database at path.
// An empty path selects DefaultRegistryPath. The returned Registry is safe
// for concurrent use; close it when the process is done journaling.
func OpenRegistry(ctx context.Context, path string) (*Registry, error) {
	return registry.Open(ctx, path, core.Logger())
}
