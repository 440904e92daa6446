// Package core provides the internal implementation of the pgliteenv testing
// helper. It contains the Manager (lifecycle state machine that resolves an
// endpoint, installs the engine's runtime dependencies, spawns the engine
// process, and probes it to readiness), the frozen Config it runs from, and
// the ConnectionInfo descriptor handed to database clients.
package core
