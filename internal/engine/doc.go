// Package engine manages the PGlite engine child process.
//
// A Process generates the Node.js runtime for an in-memory PGlite instance
// fronted by a wire-protocol socket server, spawns node against it, and
// provides readiness polling plus graceful termination. The server speaks
// the PostgreSQL wire protocol over a Unix socket or TCP, so any Postgres
// client can connect to it.
package engine
