// Package endpoint resolves where an engine instance listens: a private
// Unix socket directory or a reserved loopback TCP port. Resolution only
// reserves the endpoint; the engine binds it when it starts.
package endpoint
