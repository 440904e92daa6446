package process

import (
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/giantswarm/pgliteenv/internal/sentinel"
)

// ErrAlreadyStarted is returned when Start is called on a process that is
// already running. A process must be stopped before it can start again.
const ErrAlreadyStarted = sentinel.Error("process already started")

// ErrNilCmd is returned when SetupAndStart is called with a nil *exec.Cmd.
const ErrNilCmd = sentinel.Error("cmd must not be nil")

// ErrEmptyCmdPath is returned when SetupAndStart is called with an empty cmd.Path.
const ErrEmptyCmdPath = sentinel.Error("cmd.Path must not be empty")

// ErrEmptyWorkDir is returned when SetupAndStart is called with an empty work directory.
const ErrEmptyWorkDir = sentinel.Error("work directory must not be empty")

// BaseProcess carries the lifecycle state shared by supervised child
// processes: the running command, its single wait goroutine, and the
// output capture files. Package-specific process types embed it and reuse
// Stop/Close.
//
// BaseProcess is not safe for concurrent use; the embedding type's owner
// serializes access. In this module that owner is the core Manager, whose
// mutex covers every engine.Process call.
type BaseProcess struct {
	cmd       *exec.Cmd
	waitDone  <-chan error    // result of the one cmd.Wait call, consumed by Stop
	exited    <-chan struct{} // closed on exit; safe to select on from many goroutines
	logFiles  LogFiles
	name      string        // identifies the process in errors and log records
	log       *slog.Logger  // operational logging
	stopGrace time.Duration // grace for the auto-stop in Close; zero means DefaultStopTimeout
}

// NewBaseProcess returns a BaseProcess identified by name. stopGrace is
// only used when Close has to stop a still-running process itself; zero
// falls back to DefaultStopTimeout. A nil logger falls back to
// slog.Default(). Panics on an empty name, which would make every later
// error and log record unattributable.
func NewBaseProcess(name string, logger *slog.Logger, stopGrace time.Duration) BaseProcess {
	if name == "" {
		panic("pgliteenv: process name must not be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return BaseProcess{name: name, log: logger, stopGrace: stopGrace}
}

// Stop terminates the process: SIGTERM, up to grace for a voluntary exit,
// then SIGKILL. Afterwards IsStarted reports false no matter how the stop
// went — an error return means the child may still be alive, and it is
// deliberately not kept in a half-tracked state. Calling Stop without a
// running process (never started, already stopped, spawn failed) is a
// no-op returning nil.
func (b *BaseProcess) Stop(grace time.Duration) error {
	if b.cmd == nil || b.cmd.Process == nil {
		b.cmd = nil
		b.waitDone = nil
		b.exited = nil
		return nil
	}
	pid := b.cmd.Process.Pid
	err := stopWithDone(b.cmd, b.waitDone, grace, b.name)
	if err != nil {
		b.log.Warn("process stop failed; process may be orphaned",
			"process", b.name, "pid", pid, "error", err)
	}
	b.cmd = nil
	b.waitDone = nil
	b.exited = nil
	return err
}

// Close releases the output capture handles. When the process is still
// running — the owner skipped Stop — Close stops it first so nothing
// leaks, logging the omission; that path uses the constructor's stopGrace.
// A failed auto-stop still closes the files, so a truly unstoppable child
// keeps running with dead stdout/stderr descriptors.
func (b *BaseProcess) Close() {
	if b.cmd != nil {
		b.log.Warn("process.Close called without Stop; stopping automatically",
			"process", b.name)
		grace := b.stopGrace
		if grace <= 0 {
			grace = DefaultStopTimeout
		}
		if err := b.Stop(grace); err != nil {
			b.log.Warn("auto-stop during Close failed",
				"process", b.name, "error", err)
		}
	}
	b.logFiles.Close()
}

// Logger returns the logger used by this process.
func (b *BaseProcess) Logger() *slog.Logger {
	return b.log
}

// Exited returns a channel that closes when the process exits, or nil when
// no process is running. Any number of goroutines may select on it.
func (b *BaseProcess) Exited() <-chan struct{} {
	return b.exited
}

// IsStarted reports whether the process has been started and not yet stopped.
func (b *BaseProcess) IsStarted() bool {
	return b.cmd != nil
}

// IsAlive reports whether the process has been started, not yet stopped, and
// has not exited on its own. Unlike IsStarted, this detects a child that died
// behind the supervisor's back (crash, external kill).
func (b *BaseProcess) IsAlive() bool {
	if b.cmd == nil || b.exited == nil {
		return false
	}
	select {
	case <-b.exited:
		return false
	default:
		return true
	}
}

// Pid returns the operating system process ID of the running child, or 0 if
// the process is not started.
func (b *BaseProcess) Pid() int {
	if b.cmd == nil || b.cmd.Process == nil {
		return 0
	}
	return b.cmd.Process.Pid
}

// OutputTail returns up to maxBytes of the most recent output from the
// process's stderr and stdout logs. Used to enrich spawn and crash errors
// with what the child actually printed. Returns "" if no logs exist.
func (b *BaseProcess) OutputTail(maxBytes int) string {
	return b.logFiles.Tail(maxBytes)
}

// SetupAndStart launches cmd with its working directory set to workDir and
// stdout/stderr captured to log files there. cmd arrives with Path and
// Args already populated; platform process attributes (process group,
// parent-death signal) are applied here.
//
// cmd.Wait may be called at most once per process, so the single wait
// goroutine is started here and never anywhere else. It feeds two
// channels: waitDone (buffered, carries the Wait error for Stop) and
// exited (closed on exit, a broadcast for readiness loops and liveness
// checks).
//
// Returns ErrAlreadyStarted while a previous process is still tracked;
// Stop it first.
func (b *BaseProcess) SetupAndStart(cmd *exec.Cmd, workDir string) error {
	if cmd == nil {
		return ErrNilCmd
	}
	if cmd.Path == "" {
		return ErrEmptyCmdPath
	}
	if workDir == "" {
		return ErrEmptyWorkDir
	}
	if b.cmd != nil {
		return ErrAlreadyStarted
	}

	cmd.Dir = workDir
	configureSysProcAttr(cmd)

	logFiles, err := StartCmd(cmd, workDir, b.name)
	if err != nil {
		return fmt.Errorf("start command: %w", err)
	}
	b.cmd = cmd
	b.logFiles = logFiles

	done := make(chan error, 1)
	exited := make(chan struct{})
	go func() {
		done <- cmd.Wait()
		close(exited)
	}()
	b.waitDone = done
	b.exited = exited

	return nil
}
