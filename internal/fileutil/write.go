package fileutil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/giantswarm/pgliteenv/internal/sentinel"
)

// ErrEmptyPath is returned when a destination path is empty.
const ErrEmptyPath = sentinel.Error("destination path must not be empty")

// WriteFileAtomic writes data to path, creating parent directories as
// needed. Data is written to a temporary file in the same directory,
// fsynced, and then renamed onto path. On POSIX systems rename is atomic,
// so concurrent readers observe either the old file or the complete new
// one, never a partial write.
//
// The temporary file is created with the target mode before any data is
// written, avoiding a window where the file is broader than intended.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) (retErr error) {
	if path == "" {
		return ErrEmptyPath
	}

	if err := EnsureDirForFile(path); err != nil {
		return fmt.Errorf("prepare destination: %w", err)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".tmp-write-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		if retErr != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := tmpFile.Chmod(mode); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("write: %w", err)
	}

	// Fsync before rename so a crash cannot leave the renamed file with
	// incomplete contents.
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("sync: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp file to destination: %w", err)
	}

	return nil
}
