// Package registry journals running engine instances in a SQLite database
// shared across test processes, so a later run can sweep orphans left by
// crashed ones. Deterministic teardown never depends on it: the journal
// is a last-resort safety net, and nothing is reclaimed except by an
// explicit Sweep.
package registry
