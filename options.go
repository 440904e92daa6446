package pgliteenv

import (
	"fmt"
	"slices"
	"time"

	"log/slog"
)

// requirePositive panics if v <= 0 with a descriptive message.
func requirePositive[T int | time.Duration](name string, v T) {
	if v <= 0 {
		panic(fmt.Sprintf("pgliteenv: %s must be greater than 0, got %v", name, v))
	}
}

// requireNonEmpty panics if s is empty with a descriptive message.
func requireNonEmpty(name, s string) {
	if s == "" {
		panic(fmt.Sprintf("pgliteenv: %s must not be empty", name))
	}
}

// Option configures a Manager during construction via New.
// Each With* function returns an Option that sets a specific field.
//
// Several With* functions panic on invalid input (empty paths, non-positive
// durations, out-of-range ports). These panics are intentional: option values
// are typically compile-time constants or package-level variables, so an
// invalid value indicates a programmer error rather than a runtime condition.
// The pattern mirrors [regexp.MustCompile]: fail fast during initialization
// instead of returning errors that would be universally fatal anyway.
type Option func(*managerConfig)

// WithTimeout sets the readiness timeout for Start: the maximum time between
// spawning the engine and it accepting connections. Dependency installation
// on a cold work directory is bounded separately by WithInstallTimeout.
//
// Default: 30 seconds.
//
// Panics if d <= 0.
func WithTimeout(d time.Duration) Option {
	requirePositive("timeout", d)
	return func(c *managerConfig) {
		c.Timeout = d
	}
}

// WithProbeInterval sets the delay between readiness connection attempts
// during Start. Smaller intervals detect readiness sooner at the cost of
// more connection churn against a starting engine.
//
// Default: 100 milliseconds.
//
// Panics if d <= 0.
func WithProbeInterval(d time.Duration) Option {
	requirePositive("probe interval", d)
	return func(c *managerConfig) {
		c.ProbeInterval = d
	}
}

// WithStopGracePeriod sets how long a stopping engine gets to exit after
// SIGTERM before it is force-killed.
//
// Default: 5 seconds.
//
// Panics if d <= 0.
func WithStopGracePeriod(d time.Duration) Option {
	requirePositive("stop grace period", d)
	return func(c *managerConfig) {
		c.StopGracePeriod = d
	}
}

// WithWorkDir pins the directory holding the generated runtime, the engine's
// node_modules, and its log files. A pinned work directory survives Stop
// except for generated files, so the node module installation carries over
// between runs. If not set, each Start uses a fresh ephemeral directory
// under the system temp directory, removed entirely on Stop.
//
// Panics if dir is empty.
func WithWorkDir(dir string) Option {
	requireNonEmpty("work directory", dir)
	return func(c *managerConfig) {
		c.WorkDir = dir
	}
}

// WithSocketDir pins the directory holding the Unix socket file and implies
// Unix socket mode. The socket file inside it is removed on Stop; the
// directory itself is left alone. If not set, each Start uses a fresh
// private directory under the system temp directory.
//
// The resulting socket path must stay within the platform's Unix socket
// path limit (about 100 bytes), so prefer short paths.
//
// Panics if dir is empty.
func WithSocketDir(dir string) Option {
	requireNonEmpty("socket directory", dir)
	return func(c *managerConfig) {
		c.Transport = TransportUnix
		c.SocketDir = dir
	}
}

// WithTCP switches the engine to loopback TCP mode for clients that cannot
// use Unix sockets (containers, JDBC, Windows hosts). The listen host
// defaults to 127.0.0.1 and the port to a free kernel-assigned one; refine
// with WithTCPHost, WithTCPPort, or WithTCPPortRange.
func WithTCP() Option {
	return func(c *managerConfig) {
		c.Transport = TransportTCP
	}
}

// WithTCPHost sets the listen host and implies TCP mode.
//
// Default: 127.0.0.1.
//
// Panics if host is empty.
func WithTCPHost(host string) Option {
	requireNonEmpty("tcp host", host)
	return func(c *managerConfig) {
		c.Transport = TransportTCP
		c.TCPHost = host
	}
}

// WithTCPPort fixes the listen port and implies TCP mode. A fixed port
// fails Start with ErrEndpointUnavailable when already in use; prefer the
// default free-port selection unless a client needs a known port.
//
// Panics if port is outside [1, 65535].
func WithTCPPort(port int) Option {
	if port < 1 || port > 65535 {
		panic(fmt.Sprintf("pgliteenv: tcp port must be in [1, 65535], got %d", port))
	}
	return func(c *managerConfig) {
		c.Transport = TransportTCP
		c.TCPPort = port
	}
}

// WithTCPPortRange restricts free-port selection to [start, end] inclusive
// and implies TCP mode. Useful when firewalls or container port mappings
// only pass a known window.
//
// Panics if the range is not a valid range within [1, 65535].
func WithTCPPortRange(start, end int) Option {
	if start < 1 || end > 65535 || start > end {
		panic(fmt.Sprintf("pgliteenv: tcp port range [%d, %d] is not a valid range within [1, 65535]", start, end))
	}
	return func(c *managerConfig) {
		c.Transport = TransportTCP
		c.PortRangeStart = start
		c.PortRangeEnd = end
	}
}

// WithCleanupOnExit controls whether Stop removes working files: ephemeral
// work and socket directories entirely, pinned ones only the generated
// files. Disable to inspect the engine's logs and generated script after a
// test run.
//
// Default: true.
func WithCleanupOnExit(cleanup bool) Option {
	return func(c *managerConfig) {
		c.CleanupOnExit = cleanup
	}
}

// WithExtensions sets the engine extensions to enable, replacing any
// previously configured set. Names follow the Postgres extension names; see
// SupportedExtensions for the available set. Unknown names fail New with
// ErrUnknownExtension.
func WithExtensions(names ...string) Option {
	return func(c *managerConfig) {
		c.Extensions = slices.Clone(names)
	}
}

// WithNodeBinary sets the path to the node binary used to run the engine.
//
// Default: "node", located via PATH.
//
// Panics if binPath is empty.
func WithNodeBinary(binPath string) Option {
	requireNonEmpty("node binary path", binPath)
	return func(c *managerConfig) {
		c.NodeBinary = binPath
	}
}

// WithNpmBinary sets the path to the npm binary used to install the
// engine's node modules.
//
// Default: "npm", located via PATH.
//
// Panics if binPath is empty.
func WithNpmBinary(binPath string) Option {
	requireNonEmpty("npm binary path", binPath)
	return func(c *managerConfig) {
		c.NpmBinary = binPath
	}
}

// WithInstallPolicy controls whether Start provisions missing node modules:
// InstallAuto installs when missing, InstallRequire fails instead, and
// InstallSkip never checks.
//
// Default: InstallAuto.
//
// Panics if p is not a recognized policy.
func WithInstallPolicy(p InstallPolicy) Option {
	if !p.IsValid() {
		panic(fmt.Sprintf("pgliteenv: unknown install policy %q", p))
	}
	return func(c *managerConfig) {
		c.InstallPolicy = p
	}
}

// WithInstallTimeout bounds a single npm install run during Start.
//
// Default: 60 seconds.
//
// Panics if d <= 0.
func WithInstallTimeout(d time.Duration) Option {
	requirePositive("install timeout", d)
	return func(c *managerConfig) {
		c.InstallTimeout = d
	}
}

// WithNodeOptions passes additional options to the node runtime via the
// NODE_OPTIONS environment variable, e.g. "--max-old-space-size=512".
//
// Panics if opts is empty.
func WithNodeOptions(opts string) Option {
	requireNonEmpty("node options", opts)
	return func(c *managerConfig) {
		c.NodeOptions = opts
	}
}

// WithDatabase sets the database name in the connection descriptor handed
// to clients.
//
// Default: "postgres".
//
// Panics if name is empty.
func WithDatabase(name string) Option {
	requireNonEmpty("database name", name)
	return func(c *managerConfig) {
		c.Database = name
	}
}

// WithCredentials sets the user and password in the connection descriptor
// handed to clients. The engine itself does not authenticate; the values
// only shape the URIs and DSNs ConnectionInfo produces. An empty password
// is allowed.
//
// Default: "postgres" / "postgres".
//
// Panics if user is empty.
func WithCredentials(user, password string) Option {
	requireNonEmpty("user", user)
	return func(c *managerConfig) {
		c.User = user
		c.Password = password
	}
}

// WithLogger overrides the package-level logger for this Manager. The
// provided logger should already have any desired attributes. Takes
// precedence over WithLogLevel.
//
// Panics if l is nil.
func WithLogger(l *slog.Logger) Option {
	if l == nil {
		panic("pgliteenv: logger must not be nil")
	}
	return func(c *managerConfig) {
		c.Logger = l
	}
}

// WithLogLevel restricts this Manager's logging to records at or above
// level, using the package-level logger underneath. Ignored when WithLogger
// supplies a logger of its own.
func WithLogLevel(level slog.Level) Option {
	return func(c *managerConfig) {
		c.logLevel = level
		c.logLevelSet = true
	}
}

// WithRegistry journals the instance in r so orphaned engines and their
// files can be swept later via Registry.Sweep. Without a registry, no
// journaling happens.
//
// Panics if r is nil.
func WithRegistry(r *Registry) Option {
	if r == nil {
		panic("pgliteenv: registry must not be nil")
	}
	return func(c *managerConfig) {
		c.Registry = r
	}
}

// WithSQLReadyAttempts sets how many SELECT 1 probes WaitForReady issues
// before giving up.
//
// Default: 15.
//
// Panics if n <= 0.
func WithSQLReadyAttempts(n int) Option {
	requirePositive("sql ready attempts", n)
	return func(c *managerConfig) {
		c.sqlReadyAttempts = n
	}
}

// WithSQLReadyInterval sets the delay between WaitForReady's SELECT 1
// probes.
//
// Default: 1 second.
//
// Panics if d <= 0.
func WithSQLReadyInterval(d time.Duration) Option {
	requirePositive("sql ready interval", d)
	return func(c *managerConfig) {
		c.sqlReadyInterval = d
	}
}
