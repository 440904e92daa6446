//go:build unix && !linux

package registry

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"
)

// terminatePollInterval is how often a terminating orphan is re-checked
// for exit during the grace period.
const terminatePollInterval = 50 * time.Millisecond

// pidAlive reports whether a process with the given pid exists. Signal 0
// performs the existence check without delivering anything; EPERM means
// the process exists but belongs to another user.
func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	return errors.Is(err, syscall.EPERM)
}

// cmdlineReferences always reports false: without procfs the command
// line cannot be inspected, so a live pid is never assumed to be ours.
// The sweep then skips live pids on this platform.
func cmdlineReferences(int, string) bool {
	return false
}

// terminate sends SIGTERM, waits up to grace for the process to exit,
// then force-kills it. A process that is already gone is not an error.
func terminate(pid int, grace time.Duration) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return nil
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		if errors.Is(err, os.ErrProcessDone) || errors.Is(err, syscall.ESRCH) {
			return nil
		}
		return fmt.Errorf("signal pid %d: %w", pid, err)
	}

	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		if !pidAlive(pid) {
			return nil
		}
		time.Sleep(terminatePollInterval)
	}

	if err := proc.Signal(syscall.SIGKILL); err != nil &&
		!errors.Is(err, os.ErrProcessDone) && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("kill pid %d: %w", pid, err)
	}
	return nil
}
