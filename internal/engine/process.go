package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/giantswarm/pgliteenv/internal/fileutil"
	"github.com/giantswarm/pgliteenv/internal/probe"
	"github.com/giantswarm/pgliteenv/internal/process"
)

// processName prefixes the engine's log files and identifies it in log
// records.
const processName = "pglite"

// readinessDialTimeout is the per-attempt timeout for the dial used in
// engine readiness checks. 1 second is generous for a local connection;
// early attempts that fail because the server is not yet listening return
// immediately with a connection-refused error, so this timeout only guards
// against pathological cases (e.g., a half-open TCP handshake).
const readinessDialTimeout = time.Second

// Compile-time interface satisfaction check.
var _ process.Stoppable = (*Process)(nil)

// Config holds the configuration for a PGlite engine process.
// Exactly one endpoint mode is used: SocketPath for Unix sockets, or
// Host and Port for TCP.
type Config struct {
	NodeBinary  string   // Path to node binary (default: "node")
	WorkDir     string   // Directory for the generated runtime, node_modules, and logs
	SocketPath  string   // Unix socket path; empty selects TCP mode
	Host        string   // TCP listen host (TCP mode only)
	Port        int      // TCP listen port (TCP mode only)
	Extensions  []string // Extension names to load, validated against the supported set
	NodePath    string   // Optional NODE_PATH for module resolution outside WorkDir
	NodeOptions string   // Optional NODE_OPTIONS passed through to node
	InstanceID  string   // Optional instance identity exported as PGLITE_INSTANCE_ID

	// Logger (optional, defaults to slog.Default())
	Logger *slog.Logger
}

// unix reports whether the engine listens on a Unix socket.
func (c Config) unix() bool {
	return c.SocketPath != ""
}

// validate checks that all required Config fields are set and returns an
// error describing the first missing or invalid field.
func (c Config) validate() error {
	if c.NodeBinary == "" {
		return errors.New("node binary must not be empty")
	}
	if c.WorkDir == "" {
		return errors.New("work dir must not be empty")
	}
	if c.unix() {
		if c.Host != "" || c.Port != 0 {
			return errors.New("socket path and tcp endpoint are mutually exclusive")
		}
		return nil
	}
	if c.Host == "" {
		return errors.New("host must not be empty in tcp mode")
	}
	if c.Port <= 0 {
		return errors.New("port must be positive in tcp mode")
	}
	return nil
}

// Process manages a PGlite engine process lifecycle.
type Process struct {
	config     Config
	extensions []Extension
	base       process.BaseProcess
}

// New creates a new engine Process with the given configuration.
// It returns an error if any required field is missing or invalid, including
// unknown extension names, so misconfiguration surfaces before any process
// is spawned. New performs no I/O; writing runtime files is deferred to
// Prepare and spawning to Start.
func New(cfg Config) (*Process, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	exts, err := ResolveExtensions(cfg.Extensions)
	if err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	workDir, err := filepath.Abs(cfg.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("invalid engine config: resolve work dir: %w", err)
	}
	cfg.WorkDir = workDir
	return &Process{
		config:     cfg,
		extensions: exts,
		base:       process.NewBaseProcess(processName, cfg.Logger, 0),
	}, nil
}

// Prepare writes the Node.js runtime files into the work directory:
// package.json pinning the engine packages, and the server script bound to
// this process's endpoint. Both files are rewritten on every call so a
// reused work directory never launches against a stale endpoint.
func (p *Process) Prepare() error {
	if err := fileutil.EnsureDir(p.config.WorkDir); err != nil {
		return fmt.Errorf("prepare work dir: %w", err)
	}

	manifest, err := renderPackageJSON()
	if err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(filepath.Join(p.config.WorkDir, manifestName), manifest, 0o644); err != nil {
		return fmt.Errorf("write package.json: %w", err)
	}

	script, err := renderServerScript(scriptData{
		Unix:       p.config.unix(),
		SocketPath: p.config.SocketPath,
		Host:       p.config.Host,
		Port:       p.config.Port,
		Extensions: p.extensions,
	})
	if err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(p.ScriptPath(), script, 0o644); err != nil {
		return fmt.Errorf("write server script: %w", err)
	}
	return nil
}

// Start launches the engine process. Prepare must have been called first so
// the server script exists; the node modules must be installed (see the
// nodedeps package).
//
// The engine is intentionally not tied to any context: it runs until Stop
// (or until its parent dies, on Linux). Callers bound the subsequent
// readiness wait instead.
func (p *Process) Start() error {
	if p.base.IsStarted() {
		return process.ErrAlreadyStarted
	}

	scriptPath := p.ScriptPath()
	if _, err := os.Stat(scriptPath); err != nil {
		return fmt.Errorf("server script missing, Prepare not run: %w", err)
	}

	// The absolute script path makes the command line self-describing: the
	// registry sweep recognizes engine processes by the work directory
	// embedded in their argv.
	cmd := exec.Command(p.config.NodeBinary, scriptPath) //nolint:gosec // G204: binary and path come from validated config
	cmd.Env = p.environ()
	if err := p.base.SetupAndStart(cmd, p.config.WorkDir); err != nil {
		return fmt.Errorf("setup and start pglite process: %w", err)
	}
	return nil
}

// environ builds the child environment: the parent environment plus
// NODE_PATH for module resolution outside the work directory, a
// NODE_OPTIONS passthrough, and the instance identity.
func (p *Process) environ() []string {
	env := os.Environ()
	if p.config.NodePath != "" {
		env = append(env, "NODE_PATH="+p.config.NodePath)
	}
	if p.config.NodeOptions != "" {
		env = append(env, "NODE_OPTIONS="+p.config.NodeOptions)
	}
	if p.config.InstanceID != "" {
		env = append(env, "PGLITE_INSTANCE_ID="+p.config.InstanceID)
	}
	return env
}

// dialTarget returns the network and address for readiness dials.
func (p *Process) dialTarget() (network, addr string) {
	if p.config.unix() {
		return "unix", p.config.SocketPath
	}
	return "tcp", net.JoinHostPort(p.config.Host, strconv.Itoa(p.config.Port))
}

// WaitReady polls the engine endpoint until it accepts connections, the
// process exits, or the timeout elapses. In Unix mode the socket file must
// exist before a dial is attempted; the server creates it only once it is
// listening. Returns the time spent waiting.
func (p *Process) WaitReady(ctx context.Context, interval, timeout time.Duration) (time.Duration, error) {
	log := p.base.Logger()
	dialer := &net.Dialer{Timeout: readinessDialTimeout}
	network, addr := p.dialTarget()

	return probe.Wait(ctx, probe.Config{
		Interval:      interval,
		Timeout:       timeout,
		Name:          processName,
		Endpoint:      addr,
		Logger:        log,
		ProcessExited: p.base.Exited(),
	}, func(checkCtx context.Context, attempt int) (bool, error) {
		if p.config.unix() {
			if _, err := os.Stat(p.config.SocketPath); err != nil {
				log.Debug("socket file not present yet",
					"path", p.config.SocketPath, "attempt", attempt)
				return false, nil
			}
		}
		conn, err := dialer.DialContext(checkCtx, network, addr)
		if err != nil {
			log.Debug("engine dial attempt", "endpoint", addr, "attempt", attempt, "error", err)
			return false, nil // Not ready yet
		}
		_ = conn.Close() // best-effort close of readiness check connection
		return true, nil // server is accepting
	})
}

// ScriptPath returns the absolute path of the generated server script.
func (p *Process) ScriptPath() string {
	return filepath.Join(p.config.WorkDir, serverScriptName)
}

// WorkDir returns the absolute work directory the engine runs in.
func (p *Process) WorkDir() string {
	return p.config.WorkDir
}

// Pid returns the engine's OS process ID, or 0 when not running.
func (p *Process) Pid() int {
	return p.base.Pid()
}

// IsAlive reports whether the engine process is running. It detects a
// child that exited behind the supervisor's back.
func (p *Process) IsAlive() bool {
	return p.base.IsAlive()
}

// Exited returns a channel closed when the engine process exits.
func (p *Process) Exited() <-chan struct{} {
	return p.base.Exited()
}

// OutputTail returns up to maxBytes of recent engine output for
// diagnostics.
func (p *Process) OutputTail(maxBytes int) string {
	return p.base.OutputTail(maxBytes)
}

// Stop terminates the engine process with the given timeout.
func (p *Process) Stop(timeout time.Duration) error {
	return p.base.Stop(timeout)
}

// Close releases log file handles held by the process.
func (p *Process) Close() {
	p.base.Close()
}
