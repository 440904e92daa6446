package pgliteenv

import "github.com/giantswarm/pgliteenv/internal/core"

// SupportedExtensions returns the sorted names of the Postgres extensions
// the bundled engine can enable via WithExtensions (pgvector, pg_trgm, and
// so on). The returned slice is a copy; callers may modify it without
// affecting internal state.
func SupportedExtensions() []string {
	return core.SupportedExtensions()
}
