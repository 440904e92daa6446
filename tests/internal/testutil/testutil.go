//go:build integration

// Package testutil provides shared helpers for the integration test
// packages: engine availability gating, logging setup, and the shared
// runtime directory that lets every test reuse one npm install.
package testutil

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/giantswarm/pgliteenv"
)

// sharedRuntimeDir is the directory PrepareSharedRuntime warmed up. Every
// test manager pins its work dir to a fresh subdirectory, so node's module
// resolution walks up and finds the one node_modules installed here.
var sharedRuntimeDir string

// nameCounter is an atomic counter used by UniqueName to generate names
// that are unique across parallel test goroutines.
var nameCounter atomic.Int64

// UniqueName returns a name that is unique across all parallel tests.
func UniqueName(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, nameCounter.Add(1))
}

// FreshWorkDir returns an unused work directory under the shared runtime.
// Managers pinned there resolve the pre-installed node modules without
// paying for their own npm install.
func FreshWorkDir(prefix string) string {
	return filepath.Join(sharedRuntimeDir, UniqueName(prefix))
}

// SetupTestLogging configures slog based on the PGLITEENV_TEST_LOG_LEVEL
// environment variable. This only affects test runs - the library itself
// inherits the application's logging config.
func SetupTestLogging() {
	levelStr := os.Getenv("PGLITEENV_TEST_LOG_LEVEL")
	if levelStr == "" {
		levelStr = "INFO"
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(levelStr)); err != nil {
		level = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))

	pgliteenv.SetLogger(slog.Default().With("component", "pgliteenv"))
}

// RequireEngineOrExit checks that node and npm are available, exiting the
// process (via os.Exit) if not. This is used in TestMain where *testing.T
// is not available.
func RequireEngineOrExit() {
	for _, bin := range []struct {
		name string
		hint string
	}{
		{"node", "Install Node.js 18+: https://nodejs.org or your package manager"},
		{"npm", "npm ships with Node.js; check your PATH"},
	} {
		if _, err := exec.LookPath(bin.name); err != nil {
			fmt.Fprintf(os.Stderr, "%s binary not found in PATH\n%s\n", bin.name, bin.hint)
			os.Exit(1)
		}
		cmd := exec.Command(bin.name, "--version") //nolint:gosec // G204: binary names are hardcoded constants
		if err := cmd.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "%s binary exists but not working properly: %v\n", bin.name, err)
			os.Exit(1)
		}
	}
}

// PrepareSharedRuntime creates the shared runtime directory and pays for
// the npm install once, by running one throwaway engine to readiness.
// Every subsequent manager reuses the resulting node_modules.
func PrepareSharedRuntime() error {
	dir, err := os.MkdirTemp("", "pgliteenv-itest-*")
	if err != nil {
		return fmt.Errorf("create shared runtime dir: %w", err)
	}
	sharedRuntimeDir = dir

	warm, err := pgliteenv.New(
		pgliteenv.WithWorkDir(dir),
		pgliteenv.WithTimeout(2*time.Minute),
		pgliteenv.WithInstallTimeout(5*time.Minute),
	)
	if err != nil {
		return fmt.Errorf("create warmup manager: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	// Two attempts: a cold npm cache on CI occasionally trips the first
	// start.
	if err := pgliteenv.StartWithRetry(ctx, warm, 2); err != nil {
		return fmt.Errorf("warm up engine runtime: %w", err)
	}
	if err := warm.Stop(ctx); err != nil {
		return fmt.Errorf("stop warmup engine: %w", err)
	}
	return nil
}

// RunTestMain sets up signal handling for graceful shutdown, runs all
// tests, then removes the shared runtime directory. Returns the exit code.
func RunTestMain(m *testing.M) int {
	sigCh := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			signal.Stop(sigCh) // Restore default handler so a second signal force-kills
			fmt.Fprintf(os.Stderr, "\nReceived %s, cleaning up...\n", sig)
			_ = os.RemoveAll(sharedRuntimeDir)
			os.Exit(1)
		case <-done:
			return
		}
	}()

	code := m.Run()

	signal.Stop(sigCh)
	close(done)
	_ = os.RemoveAll(sharedRuntimeDir)

	return code
}
