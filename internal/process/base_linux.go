//go:build linux

package process

import (
	"os/exec"
	"syscall"
)

// configureSysProcAttr sets Linux-specific process attributes on cmd.
// Pdeathsig ensures the child process receives SIGTERM when its parent dies,
// preventing orphaned node engines if the test binary is killed abruptly.
// Setpgid detaches the child from the test binary's process group so a
// terminal SIGINT aimed at the test run does not tear the engine down
// behind the manager's back.
func configureSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Pdeathsig: syscall.SIGTERM,
		Setpgid:   true,
	}
}
