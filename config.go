package pgliteenv

import (
	"time"

	"log/slog"

	"github.com/giantswarm/pgliteenv/internal/core"
)

// managerConfig holds configuration for a Manager. This unexported type wraps
// core.Config via embedding, keeping internal/core types out of the public
// API signature while avoiding field-by-field duplication. The extra fields
// carry settings that are resolved here rather than passed through: the log
// level shapes the logger handed to core, and the SQL readiness budget is
// consumed by Manager.WaitForReady.
type managerConfig struct {
	core.Config

	logLevel    slog.Level
	logLevelSet bool

	sqlReadyAttempts int
	sqlReadyInterval time.Duration
}

// defaultManagerConfig returns the configuration New starts from before
// environment variables and options are applied.
func defaultManagerConfig() managerConfig {
	return managerConfig{
		Config: core.Config{
			Timeout:         DefaultTimeout,
			ProbeInterval:   DefaultProbeInterval,
			StopGracePeriod: DefaultStopGracePeriod,
			Transport:       TransportUnix,
			CleanupOnExit:   true,
			Database:        DefaultDatabase,
			User:            DefaultUser,
			Password:        DefaultPassword,
			NodeBinary:      DefaultNodeBinary,
			NpmBinary:       DefaultNpmBinary,
			InstallPolicy:   DefaultInstallPolicy,
			InstallTimeout:  DefaultInstallTimeout,
		},
		sqlReadyAttempts: DefaultSQLReadyAttempts,
		sqlReadyInterval: DefaultSQLReadyInterval,
	}
}

// toCoreConfig finalizes the embedded core.Config. TCP mode without an
// explicit host gets DefaultTCPHost, and when no logger was supplied but a
// log level was, the package logger is wrapped to honor the level.
func (c managerConfig) toCoreConfig() core.Config {
	cfg := c.Config
	if cfg.Transport == TransportTCP && cfg.TCPHost == "" {
		cfg.TCPHost = DefaultTCPHost
	}
	if cfg.Logger == nil && c.logLevelSet {
		cfg.Logger = leveledLogger(core.Logger(), c.logLevel)
	}
	return cfg
}
