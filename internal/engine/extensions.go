package engine

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/giantswarm/pgliteenv/internal/sentinel"
)

// ErrUnknownExtension is returned when a requested extension name is not in
// the supported set. The check runs during configuration, before any
// process is spawned.
const ErrUnknownExtension = sentinel.Error("unknown extension")

// Extension describes a PGlite bundled extension: the module that ships it
// and the export name the server script imports from that module.
type Extension struct {
	Name   string // user-facing extension name (e.g., "pgvector")
	Module string // module path inside the pglite distribution
	Export string // named export registered with the engine
}

// supportedExtensions maps user-facing extension names to the PGlite
// modules bundling them. The names mirror the Postgres extension names so
// configurations read naturally.
var supportedExtensions = map[string]Extension{
	"pgvector":      {Name: "pgvector", Module: "@electric-sql/pglite/vector", Export: "vector"},
	"pg_trgm":       {Name: "pg_trgm", Module: "@electric-sql/pglite/contrib/pg_trgm", Export: "pg_trgm"},
	"btree_gin":     {Name: "btree_gin", Module: "@electric-sql/pglite/contrib/btree_gin", Export: "btree_gin"},
	"btree_gist":    {Name: "btree_gist", Module: "@electric-sql/pglite/contrib/btree_gist", Export: "btree_gist"},
	"fuzzystrmatch": {Name: "fuzzystrmatch", Module: "@electric-sql/pglite/contrib/fuzzystrmatch", Export: "fuzzystrmatch"},
}

// ResolveExtensions validates the requested extension names and returns
// their descriptors in request order. Duplicate names collapse to the
// first occurrence. An unknown name fails the whole resolution.
func ResolveExtensions(names []string) ([]Extension, error) {
	exts := make([]Extension, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, dup := seen[name]; dup {
			continue
		}
		ext, ok := supportedExtensions[name]
		if !ok {
			return nil, fmt.Errorf("%w %q (supported: %s)",
				ErrUnknownExtension, name, strings.Join(SupportedExtensions(), ", "))
		}
		seen[name] = struct{}{}
		exts = append(exts, ext)
	}
	return exts, nil
}

// SupportedExtensions returns the sorted names of all supported extensions.
func SupportedExtensions() []string {
	return slices.Sorted(maps.Keys(supportedExtensions))
}
