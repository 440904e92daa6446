package pgliteenv

import "github.com/giantswarm/pgliteenv/internal/endpoint"

// Transport selects how database clients reach the engine. The default is
// TransportUnix; switch with WithTCP (or PGLITE_USE_TCP=true) when the
// client cannot speak Unix domain sockets.
//
// Transport is a type alias (not a named type) so that the underlying
// [endpoint.Transport] methods are part of the public API:
//
//   - IsValid reports whether the value is a recognized transport.
//   - String returns the transport name (implements [fmt.Stringer]).
type Transport = endpoint.Transport

const (
	// TransportUnix serves the wire protocol on a Unix domain socket in a
	// private directory. Fastest and collision-free; the default.
	TransportUnix = endpoint.TransportUnix

	// TransportTCP serves the wire protocol on a loopback TCP port, for
	// clients that cannot use Unix sockets (containers, JDBC, Windows
	// hosts).
	TransportTCP = endpoint.TransportTCP
)
