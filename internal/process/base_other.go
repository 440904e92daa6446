//go:build !linux

package process

import "os/exec"

// configureSysProcAttr is a no-op on non-Linux platforms.
// Pdeathsig (parent-death signal) is a Linux-only kernel feature, and the
// process-group detach is only needed where Pdeathsig keeps orphans at bay.
func configureSysProcAttr(_ *exec.Cmd) {}
