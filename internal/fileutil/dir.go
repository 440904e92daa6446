package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureDir creates path and any missing parents with mode 0755. An
// already existing directory is fine and left untouched.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", path, err)
	}
	return nil
}

// EnsurePrivateDir creates a directory with owner-only permissions (0700),
// creating parents as needed. If the directory already exists its mode is
// tightened to 0700. Socket directories use this so other local users
// cannot reach the endpoint.
func EnsurePrivateDir(path string) error {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return fmt.Errorf("create private directory %s: %w", path, err)
	}
	// MkdirAll does not chmod pre-existing directories.
	if err := os.Chmod(path, 0o700); err != nil {
		return fmt.Errorf("restrict directory %s: %w", path, err)
	}
	return nil
}

// EnsureDirForFile makes sure the directory that will hold filePath
// exists, so a following create or rename cannot fail on a missing parent.
func EnsureDirForFile(filePath string) error {
	if err := EnsureDir(filepath.Dir(filePath)); err != nil {
		return fmt.Errorf("ensure dir for %s: %w", filePath, err)
	}
	return nil
}
