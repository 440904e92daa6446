package netutil

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
)

// maxPortRetries is the maximum number of attempts to find a port not already
// in the registry. This guards against pathological cases.
const maxPortRetries = 20

// PortRegistry tracks ports currently reserved by this process to prevent
// the TOCTOU race where two concurrent allocations receive the same port
// from the kernel (because the first caller closed its probe listener
// before the second caller opened theirs).
//
// Managers in the same process share one PortRegistry via dependency
// injection so their TCP endpoints never collide with each other. A port
// remains reserved until Release is called, normally during teardown.
type PortRegistry struct {
	mu    sync.Mutex
	ports map[int]struct{}
	log   *slog.Logger
}

// NewPortRegistry creates a new PortRegistry ready for use.
// If logger is nil, slog.Default() is used as a fallback.
func NewPortRegistry(logger *slog.Logger) *PortRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &PortRegistry{
		ports: make(map[int]struct{}),
		log:   logger,
	}
}

// reserve attempts to register a port in the registry.
// Returns true if the port was successfully reserved, false if already taken.
func (r *PortRegistry) reserve(port int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ports[port]; ok {
		return false
	}
	r.ports[port] = struct{}{}
	return true
}

// Release removes a port from the registry, allowing it to be reused.
func (r *PortRegistry) Release(port int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.ports, port)
}

// AllocateEphemeral asks the kernel for a free port on host, skipping any
// ports already in the registry. The probe listener is closed before
// returning; the reservation protects the port from other managers in this
// process, but an unrelated process can still grab it between the probe and
// the engine's own bind. Callers treat that as a rare, retryable failure.
// The caller must Release the port when it is no longer needed.
func (r *PortRegistry) AllocateEphemeral(host string) (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return 0, fmt.Errorf("resolve tcp address: %w", err)
	}

	for range maxPortRetries {
		l, err := net.ListenTCP("tcp", addr)
		if err != nil {
			return 0, fmt.Errorf("listen on tcp address: %w", err)
		}
		tcpAddr, ok := l.Addr().(*net.TCPAddr)
		if !ok {
			_ = l.Close()
			return 0, fmt.Errorf("unexpected address type: %T", l.Addr())
		}
		port := tcpAddr.Port
		if closeErr := l.Close(); closeErr != nil {
			r.log.Warn("close probe listener", "port", port, "error", closeErr)
		}
		if r.reserve(port) {
			return port, nil
		}
		// Port already in registry, retry to get a different one.
		r.log.Debug("port already in registry, retrying", "port", port)
	}
	return 0, fmt.Errorf("allocate unique port: exhausted %d attempts", maxPortRetries)
}

// ClaimSpecific bind-probes host:port once and reserves it on success.
// A port that is registry-reserved or already bound by any process is
// reported as taken. The caller must Release the port when done.
func (r *PortRegistry) ClaimSpecific(host string, port int) error {
	if !r.reserve(port) {
		return fmt.Errorf("port %d already reserved in this process", port)
	}
	if err := probe(host, port); err != nil {
		r.Release(port)
		return fmt.Errorf("probe port %d: %w", port, err)
	}
	return nil
}

// ClaimRange scans [start, end] in order and reserves the first port that
// is neither registry-reserved nor bound by another process. The caller
// must Release the returned port when done.
func (r *PortRegistry) ClaimRange(host string, start, end int) (int, error) {
	for port := start; port <= end; port++ {
		if !r.reserve(port) {
			continue
		}
		if err := probe(host, port); err != nil {
			r.Release(port)
			r.log.Debug("port in range unavailable, trying next", "port", port, "error", err)
			continue
		}
		return port, nil
	}
	return 0, fmt.Errorf("no free port in range %d-%d", start, end)
}

// probe binds host:port and immediately closes the listener, verifying the
// port is currently free.
func probe(host string, port int) error {
	addr, err := net.ResolveTCPAddr("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return fmt.Errorf("resolve tcp address: %w", err)
	}
	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return err
	}
	return l.Close()
}
