//go:build linux

package registry

import (
	"bytes"
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
	err := syscall.Kill(pid, 0)
	if err == nil {
		return true
	}
	return errors.Is(err, syscall.EPERM)
}

// cmdlineReferences reports whether the process's command line mentions
// needle. The generated server script is spawned with its absolute path
// on the command line, so an engine's cmdline always references its work
// dir; a recycled pid running something else will not.
func cmdlineReferences(pid int, needle string) bool {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/cmdline", pid))
	if err != nil {
		return false
	}
	return bytes.Contains(data, []byte(needle))
}

// terminate sends SIGTERM, waits up to grace for the process to exit,
// then force-kills it. A process that is already gone is not an error.
func terminate(pid int, grace time.Duration) error {
	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		if errors.Is(err, syscall.ESRCH) {
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

	if err := syscall.Kill(pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("kill pid %d: %w", pid, err)
	}
	return nil
}
