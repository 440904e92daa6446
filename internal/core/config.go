package core

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/giantswarm/pgliteenv/internal/endpoint"
	"github.com/giantswarm/pgliteenv/internal/engine"
	"github.com/giantswarm/pgliteenv/internal/netutil"
	"github.com/giantswarm/pgliteenv/internal/nodedeps"
	"github.com/giantswarm/pgliteenv/internal/registry"
)

// Config describes how to start and reach an engine instance.
//
// Concurrency contract: all fields are immutable after the Manager is
// constructed via New. The Manager reads them without synchronization,
// relying on this guarantee; mutating a Config after New has no effect on
// the Manager built from it.
type Config struct {
	// Timeout bounds the readiness wait during Start: the time between
	// spawning the engine and it accepting connections.
	Timeout time.Duration

	// ProbeInterval is the delay between readiness connection attempts.
	ProbeInterval time.Duration

	// StopGracePeriod is how long a stopping engine gets to exit after
	// SIGTERM before it is force-killed.
	StopGracePeriod time.Duration

	// WorkDir holds the generated runtime, node_modules, and log files.
	// Empty means a fresh ephemeral directory per instance, removed on
	// teardown.
	WorkDir string

	// Transport selects Unix socket (default) or TCP mode. The unix
	// fields and tcp fields are mutually exclusive.
	Transport endpoint.Transport

	// SocketDir optionally pins the Unix socket directory; empty means a
	// fresh private directory per instance.
	SocketDir string

	// TCPHost and TCPPort configure TCP mode. Port 0 selects a free port,
	// from [PortRangeStart, PortRangeEnd] when the range is set, otherwise
	// kernel-assigned.
	TCPHost        string
	TCPPort        int
	PortRangeStart int
	PortRangeEnd   int

	// CleanupOnExit removes working files on Stop: ephemeral work dirs
	// entirely, pinned ones only the generated files and logs.
	CleanupOnExit bool

	// Extensions names the engine extensions to enable, validated against
	// the supported set before any process work.
	Extensions []string

	// NodeBinary and NpmBinary are the executables used to run the engine
	// and install its dependencies.
	NodeBinary string
	NpmBinary  string

	// InstallPolicy controls dependency installation: auto (install when
	// missing), require (fail when missing), or skip.
	InstallPolicy nodedeps.Policy

	// InstallTimeout bounds a single npm install run.
	InstallTimeout time.Duration

	// NodeOptions is passed through to the engine process as NODE_OPTIONS.
	NodeOptions string

	// Database, User, and Password form the connection descriptor handed
	// to clients. The engine itself does not authenticate.
	Database string
	User     string
	Password string

	// Logger overrides the package-level logger for this Manager.
	Logger *slog.Logger

	// Registry optionally journals the instance for orphan sweeps.
	// Nil means no journaling.
	Registry *registry.Registry

	// Ports optionally shares a port reservation table across Managers.
	// Nil means a private one per Manager.
	Ports *netutil.PortRegistry
}

// unix reports whether the configuration selects Unix socket mode.
func (c Config) unix() bool {
	return c.Transport == endpoint.TransportUnix
}

// Validate checks all Config invariants and returns an error describing
// every violation found. It uses errors.Join to report multiple issues at
// once, allowing callers to fix all problems in a single pass rather than
// playing whack-a-mole with one error at a time.
func (c Config) Validate() error {
	var errs []error

	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be greater than 0, got %s", c.Timeout))
	}
	if c.ProbeInterval <= 0 {
		errs = append(errs, fmt.Errorf("probe interval must be greater than 0, got %s", c.ProbeInterval))
	}
	if c.StopGracePeriod <= 0 {
		errs = append(errs, fmt.Errorf("stop grace period must be greater than 0, got %s", c.StopGracePeriod))
	}
	if c.InstallTimeout <= 0 {
		errs = append(errs, fmt.Errorf("install timeout must be greater than 0, got %s", c.InstallTimeout))
	}

	if !c.Transport.IsValid() {
		errs = append(errs, fmt.Errorf("unknown transport %q", c.Transport))
	}
	errs = append(errs, c.validateEndpoint()...)

	if !c.InstallPolicy.IsValid() {
		errs = append(errs, fmt.Errorf("unknown install policy %q", c.InstallPolicy))
	}
	if c.NodeBinary == "" {
		errs = append(errs, errors.New("node binary must not be empty"))
	}
	if c.Database == "" {
		errs = append(errs, errors.New("database name must not be empty"))
	}
	if c.User == "" {
		errs = append(errs, errors.New("user must not be empty"))
	}

	if _, err := engine.ResolveExtensions(c.Extensions); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// validateEndpoint checks the transport-specific fields, in particular
// that Unix and TCP options are not mixed.
func (c Config) validateEndpoint() []error {
	var errs []error

	if c.unix() {
		if c.TCPHost != "" {
			errs = append(errs, errors.New("tcp host conflicts with unix socket mode"))
		}
		if c.TCPPort != 0 {
			errs = append(errs, errors.New("tcp port conflicts with unix socket mode"))
		}
		if c.PortRangeStart != 0 || c.PortRangeEnd != 0 {
			errs = append(errs, errors.New("port range conflicts with unix socket mode"))
		}
		return errs
	}

	if c.SocketDir != "" {
		errs = append(errs, errors.New("socket dir conflicts with tcp mode"))
	}
	if c.TCPHost == "" {
		errs = append(errs, errors.New("tcp host must not be empty in tcp mode"))
	}
	if c.TCPPort < 0 || c.TCPPort > 65535 {
		errs = append(errs, fmt.Errorf("tcp port must be in [0, 65535], got %d", c.TCPPort))
	}
	if c.TCPPort > 0 && c.PortRangeStart > 0 {
		errs = append(errs, errors.New("fixed tcp port and port range are mutually exclusive"))
	}
	if c.PortRangeStart > 0 || c.PortRangeEnd > 0 {
		if c.PortRangeStart <= 0 || c.PortRangeEnd > 65535 || c.PortRangeStart > c.PortRangeEnd {
			errs = append(errs, fmt.Errorf("port range [%d, %d] is not a valid range within [1, 65535]",
				c.PortRangeStart, c.PortRangeEnd))
		}
	}
	return errs
}

// SupportedExtensions returns the extension names the engine can enable,
// sorted. Re-exported from engine so the public API imports only from
// core.
func SupportedExtensions() []string {
	return engine.SupportedExtensions()
}
