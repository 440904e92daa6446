package pgliteenv

import (
	"time"

	"log/slog"
)

// ConfigSnapshot holds a copy of managerConfig fields for test assertions.
// Exported only via export_test.go so that the _test package can verify
// option closures and environment overlays actually mutate the config
// without accessing internals.
type ConfigSnapshot struct {
	Timeout          time.Duration
	ProbeInterval    time.Duration
	StopGracePeriod  time.Duration
	WorkDir          string
	Transport        Transport
	SocketDir        string
	TCPHost          string
	TCPPort          int
	PortRangeStart   int
	PortRangeEnd     int
	CleanupOnExit    bool
	Extensions       []string
	NodeBinary       string
	NpmBinary        string
	InstallPolicy    InstallPolicy
	InstallTimeout   time.Duration
	NodeOptions      string
	Database         string
	User             string
	Password         string
	Logger           *slog.Logger
	Registry         *Registry
	LogLevel         slog.Level
	LogLevelSet      bool
	SQLReadyAttempts int
	SQLReadyInterval time.Duration
}

func snapshot(cfg managerConfig) ConfigSnapshot {
	return ConfigSnapshot{
		Timeout:          cfg.Timeout,
		ProbeInterval:    cfg.ProbeInterval,
		StopGracePeriod:  cfg.StopGracePeriod,
		WorkDir:          cfg.WorkDir,
		Transport:        cfg.Transport,
		SocketDir:        cfg.SocketDir,
		TCPHost:          cfg.TCPHost,
		TCPPort:          cfg.TCPPort,
		PortRangeStart:   cfg.PortRangeStart,
		PortRangeEnd:     cfg.PortRangeEnd,
		CleanupOnExit:    cfg.CleanupOnExit,
		Extensions:       cfg.Extensions,
		NodeBinary:       cfg.NodeBinary,
		NpmBinary:        cfg.NpmBinary,
		InstallPolicy:    cfg.InstallPolicy,
		InstallTimeout:   cfg.InstallTimeout,
		NodeOptions:      cfg.NodeOptions,
		Database:         cfg.Database,
		User:             cfg.User,
		Password:         cfg.Password,
		Logger:           cfg.Logger,
		Registry:         cfg.Registry,
		LogLevel:         cfg.logLevel,
		LogLevelSet:      cfg.logLevelSet,
		SQLReadyAttempts: cfg.sqlReadyAttempts,
		SQLReadyInterval: cfg.sqlReadyInterval,
	}
}

// ApplyOptionsForTesting creates a default managerConfig, applies the
// given options, and returns a ConfigSnapshot of the result. This tests
// the option closures directly without constructing a Manager.
func ApplyOptionsForTesting(opts ...Option) ConfigSnapshot {
	cfg := defaultManagerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return snapshot(cfg)
}

// ApplyEnvForTesting runs the full New assembly order (defaults, then
// environment, then options) and returns a ConfigSnapshot of the result,
// or the environment parse error.
func ApplyEnvForTesting(opts ...Option) (ConfigSnapshot, error) {
	cfg := defaultManagerConfig()
	if err := applyEnv(&cfg); err != nil {
		return ConfigSnapshot{}, err
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return snapshot(cfg), nil
}

// FinalizeForTesting applies toCoreConfig and reports the finalized TCP
// host and whether a logger was materialized, so tests can verify the
// finalization rules without reaching into internal/core.
func FinalizeForTesting(opts ...Option) (tcpHost string, hasLogger bool) {
	cfg := defaultManagerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	coreCfg := cfg.toCoreConfig()
	return coreCfg.TCPHost, coreCfg.Logger != nil
}
