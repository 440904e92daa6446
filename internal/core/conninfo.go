package core

import (
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/giantswarm/pgliteenv/internal/endpoint"
)

// socketPort is the port implied by the socket file name the engine
// listens on (.s.PGSQL.5432); libpq-compatible clients derive the file
// name from it when connecting through a socket directory.
const socketPort = 5432

// ConnectionInfo is the externally visible connection descriptor handed
// to client adapters. It is derived from the resolved endpoint and never
// mutated after issuance; Unix descriptors carry SocketDir/SocketPath,
// TCP descriptors carry Host/Port.
type ConnectionInfo struct {
	Transport  endpoint.Transport
	SocketDir  string
	SocketPath string
	Host       string
	Port       int
	Database   string
	User       string
	Password   string
}

// URI returns a PostgreSQL connection URI for drivers that take URL-style
// connection strings. In Unix mode the socket directory travels in the
// host query parameter, the libpq convention for socket connections.
func (ci ConnectionInfo) URI() string {
	u := url.URL{
		Scheme: "postgresql",
		User:   url.UserPassword(ci.User, ci.Password),
		Path:   "/" + ci.Database,
	}
	if ci.Transport == endpoint.TransportUnix {
		u.RawQuery = "host=" + url.QueryEscape(ci.SocketDir)
	} else {
		u.Host = net.JoinHostPort(ci.Host, strconv.Itoa(ci.Port))
		u.RawQuery = "sslmode=disable"
	}
	return u.String()
}

// DSN returns the keyword/value form of the descriptor for clients that
// prefer it over URIs.
func (ci ConnectionInfo) DSN() string {
	host, port := ci.Host, ci.Port
	if ci.Transport == endpoint.TransportUnix {
		host, port = ci.SocketDir, socketPort
	}
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=disable",
		host, port, ci.Database, ci.User, ci.Password)
}

// Address returns the endpoint address without credentials, for logging.
func (ci ConnectionInfo) Address() string {
	if ci.Transport == endpoint.TransportUnix {
		return ci.SocketPath
	}
	return net.JoinHostPort(ci.Host, strconv.Itoa(ci.Port))
}
