//go:build windows

package registry

import (
	"fmt"
	"os"
	"time"
)

// pidAlive reports whether a process with the given pid exists. On
// Windows, FindProcess opens a real handle and fails for dead pids.
func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	_ = proc.Release()
	return true
}

// cmdlineReferences always reports false: the command line cannot be
// inspected here, so a live pid is never assumed to be ours and the
// sweep skips it.
func cmdlineReferences(int, string) bool {
	return false
}

// terminate force-kills the process; Windows has no graceful signal to
// try first, so the grace period is unused.
func terminate(pid int, _ time.Duration) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return nil
	}
	if err := proc.Kill(); err != nil && pidAlive(pid) {
		return fmt.Errorf("kill pid %d: %w", pid, err)
	}
	return nil
}
