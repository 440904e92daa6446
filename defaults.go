package pgliteenv

import "time"

// Default configuration values for New.
// These constants are exported so callers can reference the defaults
// when building custom configurations relative to them (e.g.,
// 2 * DefaultTimeout).
const (
	// DefaultTimeout bounds the readiness wait during Start: the time
	// between spawning the engine and it accepting connections. A cold
	// start that also installs node modules is bounded separately by
	// DefaultInstallTimeout.
	DefaultTimeout = 30 * time.Second

	// DefaultProbeInterval is the delay between readiness connection
	// attempts during Start.
	DefaultProbeInterval = 100 * time.Millisecond

	// DefaultStopGracePeriod is how long a stopping engine gets to exit
	// after SIGTERM before it is force-killed.
	DefaultStopGracePeriod = 5 * time.Second

	// DefaultInstallTimeout bounds a single npm install run when the
	// install policy provisions missing node modules.
	DefaultInstallTimeout = 60 * time.Second

	// DefaultNodeBinary is the binary name used to locate node in PATH.
	DefaultNodeBinary = "node"

	// DefaultNpmBinary is the binary name used to locate npm in PATH.
	DefaultNpmBinary = "npm"

	// DefaultTCPHost is the listen host used in TCP mode when none is
	// configured.
	DefaultTCPHost = "127.0.0.1"

	// DefaultDatabase, DefaultUser, and DefaultPassword form the default
	// connection descriptor. The engine itself does not authenticate;
	// the values exist so client URIs are well-formed.
	DefaultDatabase = "postgres"
	DefaultUser     = "postgres"
	DefaultPassword = "postgres"

	// DefaultInstallPolicy installs the engine's node modules when they
	// cannot be found.
	DefaultInstallPolicy = InstallAuto

	// DefaultSQLReadyAttempts and DefaultSQLReadyInterval budget
	// Manager.WaitForReady: up to attempts SELECT 1 probes spaced by the
	// interval.
	DefaultSQLReadyAttempts = 15
	DefaultSQLReadyInterval = time.Second

	// DefaultStartRetryInterval spaces the attempts of StartWithRetry.
	DefaultStartRetryInterval = time.Second
)
