package endpoint

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/giantswarm/pgliteenv/internal/fileutil"
	"github.com/giantswarm/pgliteenv/internal/netutil"
	"github.com/giantswarm/pgliteenv/internal/sentinel"
)

// ErrUnavailable is returned when no usable endpoint could be established
// within the bounded number of candidates.
const ErrUnavailable = sentinel.Error("no usable endpoint available")

// SocketFileName is the socket file the engine listens on inside its
// socket directory. The name follows the libpq convention, so clients can
// connect with host=<dir> and the default port.
const SocketFileName = ".s.PGSQL.5432"

// maxDirAttempts bounds the number of candidate socket directories tried
// before giving up. Collisions require a duplicate pid+random suffix, so
// more than one attempt is already exceptional.
const maxDirAttempts = 20

// maxSocketPathLen is the longest socket path accepted across supported
// platforms (the BSD sun_path limit of 104 bytes minus the trailing NUL).
const maxSocketPathLen = 103

// Transport selects how clients reach the engine.
type Transport string

const (
	// TransportUnix serves the wire protocol on a Unix domain socket.
	TransportUnix Transport = "unix"

	// TransportTCP serves the wire protocol on a loopback TCP port.
	TransportTCP Transport = "tcp"
)

// IsValid reports whether t is a known transport.
func (t Transport) IsValid() bool {
	return t == TransportUnix || t == TransportTCP
}

// String returns the transport name.
func (t Transport) String() string {
	return string(t)
}

// ParseTransport converts a string (e.g., from an environment override) to
// a Transport. The empty string parses to TransportUnix, the default mode.
func ParseTransport(s string) (Transport, error) {
	t := Transport(strings.ToLower(strings.TrimSpace(s)))
	if t == "" {
		return TransportUnix, nil
	}
	if !t.IsValid() {
		return "", fmt.Errorf("unknown transport %q (valid: unix, tcp)", s)
	}
	return t, nil
}

// Config describes the endpoint to resolve.
type Config struct {
	Transport Transport

	// Unix mode. SocketDir optionally pins the directory holding the
	// socket; empty means a fresh private directory under the system temp
	// dir.
	SocketDir string

	// TCP mode. Port 0 selects a free port: from the inclusive range
	// [PortRangeStart, PortRangeEnd] when set, otherwise kernel-assigned.
	Host           string
	Port           int
	PortRangeStart int
	PortRangeEnd   int
}

// Descriptor is a resolved endpoint. Unix descriptors carry SocketDir and
// SocketPath; TCP descriptors carry Host and Port. EphemeralDir marks a
// socket directory created by the resolver, removed again on Release.
type Descriptor struct {
	Transport    Transport
	SocketDir    string
	SocketPath   string
	Host         string
	Port         int
	EphemeralDir bool
}

// Address returns a human-readable endpoint address for logging.
func (d Descriptor) Address() string {
	if d.Transport == TransportUnix {
		return d.SocketPath
	}
	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}

// Resolver produces collision-free endpoints for engine instances.
// All managers in a process share one Resolver (via its port registry) so
// their TCP endpoints never collide with each other.
type Resolver struct {
	ports *netutil.PortRegistry
	log   *slog.Logger
}

// NewResolver creates a Resolver backed by the given port registry.
// If logger is nil, slog.Default() is used as a fallback.
func NewResolver(ports *netutil.PortRegistry, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{ports: ports, log: logger}
}

// Resolve establishes an endpoint for the instance identified by id.
// The id scopes ephemeral socket directories; it must be unique per
// instance (the manager derives it from pid plus a random suffix).
//
// The endpoint is reserved but not yet bound: the engine performs the
// actual bind when it starts. An unrelated process grabbing the endpoint
// in between is a rare, retryable failure that surfaces from the engine,
// not from Resolve.
func (r *Resolver) Resolve(id string, cfg Config) (Descriptor, error) {
	switch cfg.Transport {
	case TransportUnix:
		return r.resolveUnix(id, cfg)
	case TransportTCP:
		return r.resolveTCP(cfg)
	default:
		return Descriptor{}, fmt.Errorf("resolve endpoint: unknown transport %q", cfg.Transport)
	}
}

// resolveUnix secures a socket directory and derives the socket path.
func (r *Resolver) resolveUnix(id string, cfg Config) (Descriptor, error) {
	if cfg.SocketDir != "" {
		// Pinned directory: create if needed and clear a stale socket left
		// by a previous run.
		if err := fileutil.EnsurePrivateDir(cfg.SocketDir); err != nil {
			return Descriptor{}, fmt.Errorf("resolve endpoint: %w", err)
		}
		sockPath := filepath.Join(cfg.SocketDir, SocketFileName)
		if err := checkSocketPathLen(sockPath); err != nil {
			return Descriptor{}, err
		}
		if err := os.Remove(sockPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Descriptor{}, fmt.Errorf("resolve endpoint: remove stale socket: %w", err)
		}
		return Descriptor{
			Transport:  TransportUnix,
			SocketDir:  cfg.SocketDir,
			SocketPath: sockPath,
		}, nil
	}

	// Fresh private directory under the system temp dir. os.Mkdir (not
	// MkdirAll) detects collisions, and each retry mixes in fresh
	// randomness.
	for attempt := range maxDirAttempts {
		name := "pgliteenv-" + id
		if attempt > 0 {
			name += "-" + uuid.NewString()[:8]
		}
		dir := filepath.Join(os.TempDir(), name)
		sockPath := filepath.Join(dir, SocketFileName)
		if err := checkSocketPathLen(sockPath); err != nil {
			return Descriptor{}, err
		}

		err := os.Mkdir(dir, 0o700)
		if err == nil {
			return Descriptor{
				Transport:    TransportUnix,
				SocketDir:    dir,
				SocketPath:   sockPath,
				EphemeralDir: true,
			}, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return Descriptor{}, fmt.Errorf("resolve endpoint: create socket dir: %w", err)
		}
		r.log.Debug("socket dir candidate exists, retrying", "dir", dir, "attempt", attempt+1)
	}
	return Descriptor{}, fmt.Errorf("resolve endpoint: %w: exhausted %d socket dir candidates",
		ErrUnavailable, maxDirAttempts)
}

// resolveTCP reserves a TCP port per the configured selection mode.
func (r *Resolver) resolveTCP(cfg Config) (Descriptor, error) {
	desc := Descriptor{Transport: TransportTCP, Host: cfg.Host}

	switch {
	case cfg.Port > 0:
		if err := r.ports.ClaimSpecific(cfg.Host, cfg.Port); err != nil {
			return Descriptor{}, fmt.Errorf("resolve endpoint: %w: %w", ErrUnavailable, err)
		}
		desc.Port = cfg.Port
	case cfg.PortRangeStart > 0:
		port, err := r.ports.ClaimRange(cfg.Host, cfg.PortRangeStart, cfg.PortRangeEnd)
		if err != nil {
			return Descriptor{}, fmt.Errorf("resolve endpoint: %w: %w", ErrUnavailable, err)
		}
		desc.Port = port
	default:
		port, err := r.ports.AllocateEphemeral(cfg.Host)
		if err != nil {
			return Descriptor{}, fmt.Errorf("resolve endpoint: %w: %w", ErrUnavailable, err)
		}
		desc.Port = port
	}
	return desc, nil
}

// Release frees everything Resolve reserved for desc: the port
// reservation for TCP endpoints, the socket file and (when created by the
// resolver) the socket directory for Unix endpoints. Release is
// best-effort and idempotent; failures are logged, not returned.
func (r *Resolver) Release(desc Descriptor) {
	switch desc.Transport {
	case TransportTCP:
		if desc.Port > 0 {
			r.ports.Release(desc.Port)
		}
	case TransportUnix:
		if desc.SocketPath != "" {
			if err := os.Remove(desc.SocketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
				r.log.Warn("remove socket file", "path", desc.SocketPath, "error", err)
			}
		}
		if desc.EphemeralDir && desc.SocketDir != "" {
			if err := os.RemoveAll(desc.SocketDir); err != nil {
				r.log.Warn("remove socket dir", "dir", desc.SocketDir, "error", err)
			}
		}
	}
}

// checkSocketPathLen rejects socket paths exceeding the portable sun_path
// limit. Overlong paths fail at bind time with a confusing EINVAL, so the
// resolver catches them up front.
func checkSocketPathLen(path string) error {
	if len(path) > maxSocketPathLen {
		return fmt.Errorf("resolve endpoint: %w: socket path %q exceeds %d bytes, configure a shorter socket dir",
			ErrUnavailable, path, maxSocketPathLen)
	}
	return nil
}
