package process

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// LogFiles owns the files capturing a child process's stdout and stderr.
type LogFiles struct {
	stdoutFile *os.File
	stderrFile *os.File
	dir        string
	stdoutName string // e.g., "pglite-stdout.log"
	stderrName string // e.g., "pglite-stderr.log"
}

// NewLogFiles creates the capture files for processName in dir. File names
// derive from the process name ("pglite" -> "pglite-stdout.log"). Neither
// handle is kept unless both creates succeed.
func NewLogFiles(dir, processName string) (LogFiles, error) {
	l := LogFiles{
		dir:        dir,
		stdoutName: processName + "-stdout.log",
		stderrName: processName + "-stderr.log",
	}
	stdoutFile, err := os.Create(l.StdoutPath())
	if err != nil {
		return LogFiles{}, fmt.Errorf("create stdout log: %w", err)
	}
	stderrFile, err := os.Create(l.StderrPath())
	if err != nil {
		_ = stdoutFile.Close()
		return LogFiles{}, fmt.Errorf("create stderr log: %w", err)
	}
	l.stdoutFile = stdoutFile
	l.stderrFile = stderrFile
	return l, nil
}

// Close closes both capture handles; closing twice is safe. The files stay
// on disk, so Tail keeps working after Close.
func (l *LogFiles) Close() {
	if l.stdoutFile != nil {
		_ = l.stdoutFile.Close()
		l.stdoutFile = nil
	}
	if l.stderrFile != nil {
		_ = l.stderrFile.Close()
		l.stderrFile = nil
	}
}

// StdoutPath returns the absolute path of the stdout capture file.
func (l *LogFiles) StdoutPath() string {
	return filepath.Join(l.dir, l.stdoutName)
}

// StderrPath returns the absolute path of the stderr capture file.
func (l *LogFiles) StderrPath() string {
	return filepath.Join(l.dir, l.stderrName)
}

// Tail returns up to maxBytes of the most recent output across the stderr
// and stdout logs, stderr first since errors usually land there. Empty
// files are skipped. Returns "" when neither log holds any output or the
// log files were never created.
func (l *LogFiles) Tail(maxBytes int) string {
	if l.dir == "" || maxBytes <= 0 {
		return ""
	}
	var parts []string
	if out := tailFile(l.StderrPath(), maxBytes); out != "" {
		parts = append(parts, "stderr: "+out)
	}
	if out := tailFile(l.StdoutPath(), maxBytes); out != "" {
		parts = append(parts, "stdout: "+out)
	}
	return strings.Join(parts, "\n")
}

// tailFile reads up to maxBytes from the end of the file at path.
// Returns "" on any error; tails are diagnostic garnish, not load-bearing.
func tailFile(path string, maxBytes int) string {
	f, err := os.Open(path) //nolint:gosec // G304: path is built from our own log dir
	if err != nil {
		return ""
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return ""
	}
	offset := info.Size() - int64(maxBytes)
	if offset < 0 {
		offset = 0
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return ""
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// DefaultStopTimeout is the fallback grace period for stopping a process
// when the owner configured none.
const DefaultStopTimeout = 10 * time.Second

// killDrainTimeout bounds the wait for cmd.Wait to deliver after SIGKILL
// was sent or the process was found already dead. An uncatchable kill
// should reap near-instantly; the bound only guards against cmd.Wait
// hanging on stuck I/O.
const killDrainTimeout = 10 * time.Second

// drainDone collects the cmd.Wait result from done, giving up after
// timeout. Reports whether the result arrived, and the cmd.Wait error when
// it did.
func drainDone(done <-chan error, timeout time.Duration) (bool, error) {
	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case err := <-done:
		return true, err
	case <-t.C:
		return false, nil
	}
}

// stopWithDone terminates cmd: SIGTERM, up to grace for a voluntary exit,
// then SIGKILL, then a bounded drain of the wait goroutine. The done
// channel must carry the result of the single cmd.Wait call made at start
// time; draining it here is what guarantees no second Wait is ever needed.
//
// A forced kill that reaps is a successful stop, same as a voluntary exit:
// the error return means the child may still be alive. Exits caused by
// SIGTERM/SIGKILL count as clean (see expectSignalExit).
//
// stopWithDone leaves cmd and done untouched; the caller clears its
// references afterwards. Worst-case blocking is grace + killDrainTimeout.
func stopWithDone(cmd *exec.Cmd, done <-chan error, grace time.Duration, name string) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	if done == nil {
		return fmt.Errorf("%s: done channel must not be nil", name)
	}

	// SIGTERM first. The engine script traps it, closes the socket server
	// and the database, and exits 0, so the common case resolves well
	// inside the grace window.
	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		// Signal failure means the child already exited; collect the wait
		// result so the goroutine is not left dangling.
		ok, waitErr := drainDone(done, killDrainTimeout)
		if !ok {
			return fmt.Errorf("%s: timed out draining process after signal failure", name)
		}
		return expectSignalExit(waitErr, name)
	}

	graceTimer := time.NewTimer(grace)
	defer graceTimer.Stop()

	select {
	case err := <-done:
		return expectSignalExit(err, name)
	case <-graceTimer.C:
	}

	// Grace expired: escalate. Kill on a child that exited in the meantime
	// returns "process already finished", harmless either way.
	_ = cmd.Process.Kill()

	ok, waitErr := drainDone(done, killDrainTimeout)
	if !ok {
		return fmt.Errorf("%s: process did not exit after SIGKILL", name)
	}
	if err := expectSignalExit(waitErr, name); err != nil {
		return fmt.Errorf("%s: stop escalated to SIGKILL: %w", name, err)
	}
	return nil
}

// expectSignalExit normalizes the cmd.Wait error after a termination
// signal was sent. Death by SIGTERM or SIGKILL is the requested outcome,
// so it maps to nil, as does a voluntary exit 0 (the engine script's
// graceful path). Anything else is a real stop failure.
func expectSignalExit(err error, name string) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			sig := status.Signal()
			if sig == syscall.SIGTERM || sig == syscall.SIGKILL {
				return nil
			}
		}
	}
	return fmt.Errorf("%s: %w", name, err)
}

// StartCmd wires cmd's stdout/stderr to fresh capture files in dir and
// starts it. The caller owns the returned LogFiles; on a failed start they
// are already closed.
func StartCmd(cmd *exec.Cmd, dir, processName string) (LogFiles, error) {
	logFiles, err := NewLogFiles(dir, processName)
	if err != nil {
		return LogFiles{}, fmt.Errorf("create %s logs: %w", processName, err)
	}

	cmd.Stdout = logFiles.stdoutFile
	cmd.Stderr = logFiles.stderrFile

	if err := cmd.Start(); err != nil {
		logFiles.Close()
		return LogFiles{}, fmt.Errorf("start %s process: %w", processName, err)
	}

	return logFiles, nil
}
