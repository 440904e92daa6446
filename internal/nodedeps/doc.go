// Package nodedeps provisions the Node.js modules the PGlite engine runs on.
//
// EnsureInstalled resolves the pglite package for a work directory the way
// node itself would (walking node_modules up the directory tree) and, under
// PolicyAuto, installs it with npm when missing. Installs into a shared
// work directory are serialized across processes with a file lock so
// parallel test runs do not trample each other's npm state.
package nodedeps
