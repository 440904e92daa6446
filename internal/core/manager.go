package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/giantswarm/pgliteenv/internal/endpoint"
	"github.com/giantswarm/pgliteenv/internal/engine"
	"github.com/giantswarm/pgliteenv/internal/fileutil"
	"github.com/giantswarm/pgliteenv/internal/netutil"
	"github.com/giantswarm/pgliteenv/internal/nodedeps"
	"github.com/giantswarm/pgliteenv/internal/process"
	"github.com/giantswarm/pgliteenv/internal/registry"
)

// outputTailBytes limits how much captured engine output is attached to
// failure diagnostics.
const outputTailBytes = 1024

// Manager owns one engine instance end to end: it resolves an endpoint,
// installs dependencies, spawns the engine, probes readiness, and hands
// out the connection descriptor; Stop tears all of it down again.
//
// Manager is a sequential state machine driven by the calling test
// process. The mutex makes concurrent misuse safe (calls serialize), not
// useful: callers are expected to use one Manager from one goroutine at a
// time and to open one logical client session at a time against it —
// the engine accepts a single active connection.
//
// Synchronization strategy:
//   - state is an atomic State enum so State() and guard checks read it
//     without the mutex. Transitions happen only under mu.
//   - mu serializes Start, Stop, Restart, and ConnectionInfo. The runtime
//     fields (workDir, desc, eng, info) are only accessed under mu.
//   - cfg is immutable after New and read freely.
type Manager struct {
	cfg Config

	id       string
	log      *slog.Logger
	ports    *netutil.PortRegistry
	resolver *endpoint.Resolver
	reg      *registry.Registry

	state atomic.Uint32 // State; zero value is StateIdle

	mu               sync.Mutex
	workDir          string
	workDirEphemeral bool
	desc             endpoint.Descriptor
	eng              *engine.Process
	info             *ConnectionInfo
}

// New creates a Manager from the given configuration. It validates and
// freezes the configuration and performs no process or network I/O; all
// acquisition happens in Start.
//
// Invalid or contradictory options, including unknown extension names,
// return an error wrapping ErrInvalidConfig before any subprocess work.
func New(cfg Config) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	// The id namespaces every per-instance resource (work dir, socket
	// dir, journal row) so parallel test runs never collide.
	id := fmt.Sprintf("%d-%s", os.Getpid(), uuid.NewString()[:8])

	logger := cfg.Logger
	if logger == nil {
		logger = Logger()
	}
	log := logger.With("instance", id)

	ports := cfg.Ports
	if ports == nil {
		ports = netutil.NewPortRegistry(log)
	}

	return &Manager{
		cfg:      cfg,
		id:       id,
		log:      log,
		ports:    ports,
		resolver: endpoint.NewResolver(ports, log),
		reg:      cfg.Registry,
	}, nil
}

// ID returns the instance's unique identifier.
func (m *Manager) ID() string {
	return m.id
}

// State returns the current lifecycle state. It is safe to call from any
// goroutine and does not block on in-flight transitions.
func (m *Manager) State() State {
	return State(m.state.Load())
}

func (m *Manager) setState(s State) {
	m.state.Store(uint32(s))
}

// WorkDir returns the instance's working directory, or "" when no start
// cycle is active.
func (m *Manager) WorkDir() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.workDir
}

// Start brings the Manager from Idle to Ready: it acquires the work dir,
// dependencies, endpoint, and process in that order, then waits for the
// engine to accept connections. On any failure it rolls back whatever was
// acquired, transitions to Failed, and returns an error identifying the
// failed phase; partial state is never left for the caller to clean up.
//
// Start performs at most one attempt; retrying is the caller's explicit
// decision. Start on a Ready Manager is a no-op; Start on a terminal
// Manager returns ErrManagerStopped.
func (m *Manager) Start(ctx context.Context) error {
	// Fail fast on an already-canceled context without burning the
	// Manager: the caller can fix the context and try again.
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch st := m.State(); {
	case st == StateReady:
		return nil // Already started
	case st.Terminal():
		return fmt.Errorf("start: %w (state %s)", ErrManagerStopped, st)
	}
	return m.startLocked(ctx)
}

// startLocked runs one full start cycle. Callers must hold mu.
func (m *Manager) startLocked(ctx context.Context) error {
	m.setState(StateStarting)
	if err := m.doStart(ctx); err != nil {
		m.setState(StateFailed)
		return err
	}
	m.setState(StateReady)
	return nil
}

// doStart acquires resources in the fixed order work dir → dependencies →
// endpoint → process → readiness. Each failure site rolls back exactly
// what was acquired before it, in reverse order.
func (m *Manager) doStart(ctx context.Context) error {
	startTime := time.Now()
	m.log.Debug("starting engine instance")

	workDir, ephemeral := m.cfg.WorkDir, false
	if workDir == "" {
		workDir = filepath.Join(os.TempDir(), "pgliteenv-"+m.id)
		ephemeral = true
	}
	if err := fileutil.EnsureDir(workDir); err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}

	nodePath, err := nodedeps.EnsureInstalled(ctx, nodedeps.Config{
		WorkDir:   workDir,
		Policy:    m.cfg.InstallPolicy,
		NpmBinary: m.cfg.NpmBinary,
		Timeout:   m.cfg.InstallTimeout,
		Logger:    m.log,
	})
	if err != nil {
		m.removeWorkFiles(workDir, ephemeral)
		return fmt.Errorf("%w: install engine dependencies: %w", ErrSpawnFailed, err)
	}

	desc, err := m.resolver.Resolve(m.id, endpoint.Config{
		Transport:      m.cfg.Transport,
		SocketDir:      m.cfg.SocketDir,
		Host:           m.cfg.TCPHost,
		Port:           m.cfg.TCPPort,
		PortRangeStart: m.cfg.PortRangeStart,
		PortRangeEnd:   m.cfg.PortRangeEnd,
	})
	if err != nil {
		m.removeWorkFiles(workDir, ephemeral)
		return err
	}

	eng, err := engine.New(m.engineConfig(desc, workDir, nodePath))
	if err != nil {
		m.resolver.Release(desc)
		m.removeWorkFiles(workDir, ephemeral)
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := eng.Prepare(); err != nil {
		m.resolver.Release(desc)
		m.removeWorkFiles(workDir, ephemeral)
		return fmt.Errorf("%w: prepare engine runtime: %w", ErrSpawnFailed, err)
	}
	if err := eng.Start(); err != nil {
		m.resolver.Release(desc)
		m.removeWorkFiles(workDir, ephemeral)
		return fmt.Errorf("%w: %w", ErrSpawnFailed, err)
	}

	elapsed, err := eng.WaitReady(ctx, m.cfg.ProbeInterval, m.cfg.Timeout)
	if err != nil {
		// Capture diagnostics before teardown removes the log files.
		err = m.withOutputTail(eng, fmt.Errorf("wait for engine readiness: %w", err))
		if stopErr := process.StopCloseAndNil(&eng, m.cfg.StopGracePeriod); stopErr != nil {
			m.log.Warn("stop engine after failed readiness wait", "error", stopErr)
		}
		m.resolver.Release(desc)
		m.removeWorkFiles(workDir, ephemeral)
		return err
	}

	info := m.connectionInfo(desc)
	m.journalRecord(ctx, desc, eng, workDir, ephemeral)

	m.workDir = workDir
	m.workDirEphemeral = ephemeral
	m.desc = desc
	m.eng = eng
	m.info = &info

	m.log.Info("engine ready",
		"endpoint", desc.Address(),
		"ready_after", elapsed.Round(time.Millisecond),
		"total_elapsed", time.Since(startTime).Round(time.Millisecond),
	)
	return nil
}

// engineConfig derives the engine process configuration from the resolved
// endpoint.
func (m *Manager) engineConfig(desc endpoint.Descriptor, workDir, nodePath string) engine.Config {
	cfg := engine.Config{
		NodeBinary:  m.cfg.NodeBinary,
		WorkDir:     workDir,
		Extensions:  m.cfg.Extensions,
		NodePath:    nodePath,
		NodeOptions: m.cfg.NodeOptions,
		InstanceID:  m.id,
		Logger:      m.log,
	}
	if desc.Transport == endpoint.TransportUnix {
		cfg.SocketPath = desc.SocketPath
	} else {
		cfg.Host = desc.Host
		cfg.Port = desc.Port
	}
	return cfg
}

// connectionInfo derives the client-facing descriptor from the resolved
// endpoint.
func (m *Manager) connectionInfo(desc endpoint.Descriptor) ConnectionInfo {
	return ConnectionInfo{
		Transport:  desc.Transport,
		SocketDir:  desc.SocketDir,
		SocketPath: desc.SocketPath,
		Host:       desc.Host,
		Port:       desc.Port,
		Database:   m.cfg.Database,
		User:       m.cfg.User,
		Password:   m.cfg.Password,
	}
}

// journalRecord writes the instance to the registry, when one is
// configured. Journaling is bookkeeping for the orphan sweep and never
// fails a start.
func (m *Manager) journalRecord(ctx context.Context, desc endpoint.Descriptor, eng *engine.Process, workDir string, ephemeral bool) {
	if m.reg == nil {
		return
	}
	socketDir := ""
	if desc.EphemeralDir {
		socketDir = desc.SocketDir
	}
	err := m.reg.Record(ctx, registry.Instance{
		ID:        m.id,
		OwnerPid:  os.Getpid(),
		EnginePid: eng.Pid(),
		Transport: desc.Transport.String(),
		Endpoint:  desc.Address(),
		SocketDir: socketDir,
		WorkDir:   workDir,
		Ephemeral: ephemeral,
		StartedAt: time.Now(),
	})
	if err != nil {
		m.log.Warn("journal instance", "error", err)
	}
}

// withOutputTail appends a tail of the captured engine output to err so a
// failing CI run is debuggable without manual log inspection.
func (m *Manager) withOutputTail(eng *engine.Process, err error) error {
	if tail := eng.OutputTail(outputTailBytes); tail != "" {
		return fmt.Errorf("%w\nengine output:\n%s", err, tail)
	}
	return err
}

// Stop tears the instance down and transitions to Stopped. Teardown runs
// unconditionally in reverse acquisition order and is best-effort: only a
// failed kill (the engine may still be alive) propagates as an error,
// everything else is logged and swallowed.
//
// Stop on an already-terminal Manager is a safe no-op, so fixtures may
// call it defensively at multiple scope levels.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch st := m.State(); {
	case st.Terminal():
		return nil // Already torn down
	case st == StateIdle:
		// Nothing was ever acquired.
		m.setState(StateStopped)
		return nil
	}
	return m.stopLocked(ctx, true, StateStopped)
}

// stopLocked tears down in reverse acquisition order: engine process,
// endpoint, working files, journal row. Callers must hold mu. The final
// state is a parameter because a liveness-triggered teardown ends in
// Failed rather than Stopped.
func (m *Manager) stopLocked(ctx context.Context, removeWork bool, final State) error {
	m.setState(StateStopping)
	m.log.Debug("stopping engine instance")

	var stopErr error
	if err := process.StopCloseAndNil(&m.eng, m.cfg.StopGracePeriod); err != nil {
		stopErr = fmt.Errorf("stop engine: %w", err)
		m.log.Warn("engine stop failed", "error", stopErr)
	}

	m.resolver.Release(m.desc)
	m.desc = endpoint.Descriptor{}

	if removeWork {
		m.removeWorkFiles(m.workDir, m.workDirEphemeral)
		m.workDir = ""
		m.workDirEphemeral = false
	}

	if m.reg != nil {
		if err := m.reg.Remove(ctx, m.id); err != nil {
			m.log.Warn("remove journal row", "error", err)
		}
	}

	m.info = nil
	m.setState(final)
	m.log.Info("engine stopped", "state", final)
	return stopErr
}

// removeWorkFiles clears working files per the cleanup flag: ephemeral
// work dirs are removed entirely, pinned ones lose only the generated
// files and logs so user files and an installed node_modules survive.
func (m *Manager) removeWorkFiles(workDir string, ephemeral bool) {
	if !m.cfg.CleanupOnExit || workDir == "" {
		return
	}
	if ephemeral {
		if err := os.RemoveAll(workDir); err != nil {
			m.log.Warn("remove work dir", "dir", workDir, "error", err)
		}
		return
	}
	for _, name := range engine.GeneratedFiles() {
		path := filepath.Join(workDir, name)
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			m.log.Warn("remove generated file", "path", path, "error", err)
		}
	}
}

// Restart stops the instance if it is running and starts a fresh cycle
// with the same configuration but a freshly resolved endpoint — the
// socket path or port may change. Unlike Start, Restart re-arms a
// terminal Manager; it is the one sanctioned path out of Stopped/Failed.
//
// The work dir is kept across the stop so an existing node_modules
// install carries over into the new cycle.
func (m *Manager) Restart(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("restart: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.State() == StateReady {
		if err := m.stopLocked(ctx, false, StateStopped); err != nil {
			return fmt.Errorf("restart: %w", err)
		}
	}
	return m.startLocked(ctx)
}

// ConnectionInfo returns the connection descriptor for the running
// engine. It is valid only in the Ready state and doubles as a health
// check: when the engine process has died underneath a Ready Manager, the
// leftovers are torn down, the Manager transitions to Failed, and the
// returned error carries the engine's final output.
func (m *Manager) ConnectionInfo() (*ConnectionInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if st := m.State(); st != StateReady {
		return nil, fmt.Errorf("connection info: %w (state %s)", ErrNotReady, st)
	}

	if m.eng == nil || !m.eng.IsAlive() {
		err := fmt.Errorf("connection info: %w: engine exited unexpectedly", ErrNotReady)
		if m.eng != nil {
			err = m.withOutputTail(m.eng, err)
		}
		// The socket file and journal row must not outlive the dead
		// engine they point at.
		if stopErr := m.stopLocked(context.Background(), true, StateFailed); stopErr != nil {
			m.log.Warn("teardown after engine death", "error", stopErr)
		}
		return nil, err
	}

	info := *m.info
	return &info, nil
}
