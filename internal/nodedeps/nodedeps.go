package nodedeps

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/giantswarm/pgliteenv/internal/fileutil"
	"github.com/giantswarm/pgliteenv/internal/sentinel"
)

// Policy controls how the engine's node modules are provisioned.
type Policy string

const (
	// PolicyAuto installs the modules with npm when they cannot be found.
	PolicyAuto Policy = "auto"

	// PolicyRequire fails fast when the modules cannot be found; nothing
	// is ever installed. Suited to CI images with a prebaked runtime.
	PolicyRequire Policy = "require"

	// PolicySkip performs no check and no install; node's own module
	// resolution decides at spawn time.
	PolicySkip Policy = "skip"
)

// IsValid reports whether p is a known policy.
func (p Policy) IsValid() bool {
	switch p {
	case PolicyAuto, PolicyRequire, PolicySkip:
		return true
	}
	return false
}

// ParsePolicy converts a string (e.g., from an environment override) to a
// Policy. The empty string parses to PolicyAuto.
func ParsePolicy(s string) (Policy, error) {
	p := Policy(strings.ToLower(strings.TrimSpace(s)))
	if p == "" {
		return PolicyAuto, nil
	}
	if !p.IsValid() {
		return "", fmt.Errorf("unknown install policy %q (valid: auto, require, skip)", s)
	}
	return p, nil
}

// ErrModulesMissing is returned when the pglite node modules cannot be
// resolved for a work directory and the policy forbids installing them.
const ErrModulesMissing = sentinel.Error("pglite node modules not found")

// ErrEmptyWorkDir is returned when EnsureInstalled is called without a work
// directory.
const ErrEmptyWorkDir = sentinel.Error("work dir must not be empty")

// pgliteModuleDir is the directory that must exist under node_modules for
// the runtime to be considered installed.
const pgliteModuleDir = "@electric-sql/pglite"

// installLockName is the lock file guarding concurrent npm installs into
// the same work directory. The lock file stays on disk after release.
const installLockName = ".pgliteenv-install.lock"

// DefaultInstallTimeout bounds a single npm install run.
const DefaultInstallTimeout = 60 * time.Second

// outputTailBytes limits how much npm output is attached to install errors.
const outputTailBytes = 1024

// Config configures module provisioning for one work directory.
type Config struct {
	WorkDir   string        // Directory holding package.json; installs land in its node_modules
	Policy    Policy        // Defaults to PolicyAuto
	NpmBinary string        // Defaults to "npm"
	Timeout   time.Duration // Per-install timeout; defaults to DefaultInstallTimeout

	// Logger (optional, defaults to slog.Default())
	Logger *slog.Logger
}

// EnsureInstalled makes sure the pglite runtime modules are resolvable for
// an engine launched from cfg.WorkDir. It returns the node_modules
// directory to expose to node via NODE_PATH, or "" under PolicySkip.
//
// Concurrent installs into the same work directory (parallel test binaries
// sharing a cached runtime) are serialized with a file lock, and the
// modules are re-checked after the lock is won so only one process pays
// for the install.
func EnsureInstalled(ctx context.Context, cfg Config) (string, error) {
	if cfg.WorkDir == "" {
		return "", ErrEmptyWorkDir
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	policy := cfg.Policy
	if policy == "" {
		policy = PolicyAuto
	}
	if policy == PolicySkip {
		return "", nil
	}

	if dir := FindModulesDir(cfg.WorkDir); dir != "" {
		log.Debug("pglite modules already present", "node_modules", dir)
		return dir, nil
	}

	if policy == PolicyRequire {
		return "", fmt.Errorf(
			"%w under %s or any parent (install them or switch the install policy to auto)",
			ErrModulesMissing, cfg.WorkDir)
	}

	if err := fileutil.EnsureDir(cfg.WorkDir); err != nil {
		return "", err
	}

	unlock, err := lockInstallDir(ctx, cfg.WorkDir, log)
	if err != nil {
		return "", err
	}
	defer unlock()

	// Another process may have finished the install while we waited on the
	// lock.
	if dir := FindModulesDir(cfg.WorkDir); dir != "" {
		log.Debug("pglite modules installed by concurrent process", "node_modules", dir)
		return dir, nil
	}

	if err := runInstall(ctx, cfg, log); err != nil {
		return "", err
	}

	dir := FindModulesDir(cfg.WorkDir)
	if dir == "" {
		return "", fmt.Errorf("%w after npm install in %s", ErrModulesMissing, cfg.WorkDir)
	}
	return dir, nil
}

// runInstall executes npm install in the work directory with a bounded
// timeout, capturing output for error reporting.
func runInstall(ctx context.Context, cfg Config, log *slog.Logger) error {
	npm := cfg.NpmBinary
	if npm == "" {
		npm = "npm"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultInstallTimeout
	}

	installCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	log.Info("installing pglite node modules", "work_dir", cfg.WorkDir, "timeout", timeout)
	start := time.Now()

	// --no-audit/--no-fund skip network audit calls and banner output that
	// only slow down a throwaway test install.
	cmd := exec.CommandContext(installCtx, npm, "install", "--no-audit", "--no-fund") //nolint:gosec // G204: binary comes from validated config
	cmd.Dir = cfg.WorkDir
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		if installCtx.Err() != nil {
			return fmt.Errorf("npm install timed out after %s: %w", timeout, installCtx.Err())
		}
		return fmt.Errorf("npm install: %w: %s", err, tail(output.String(), outputTailBytes))
	}

	log.Info("npm install completed", "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

// FindModulesDir walks up from start looking for a node_modules directory
// that contains the pglite package, mirroring node's own resolution order.
// Returns "" when none is found.
func FindModulesDir(start string) string {
	dir, err := filepath.Abs(start)
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, "node_modules")
		if info, err := os.Stat(filepath.Join(candidate, pgliteModuleDir)); err == nil && info.IsDir() {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// tail returns the trailing n bytes of s, whitespace-trimmed.
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
