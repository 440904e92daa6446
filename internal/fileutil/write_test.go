package fileutil

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestWriteFileAtomic(t *testing.T) {
	t.Parallel()

	t.Run("writes new file", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		path := filepath.Join(dir, "package.json")

		if err := WriteFileAtomic(path, []byte(`{"name":"x"}`), 0o644); err != nil {
			t.Fatalf("WriteFileAtomic() error: %v", err)
		}

		got, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read back: %v", err)
		}
		if string(got) != `{"name":"x"}` {
			t.Errorf("content = %q, want %q", got, `{"name":"x"}`)
		}
	})

	t.Run("creates parent directory", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		path := filepath.Join(dir, "nested", "deep", "server.js")

		if err := WriteFileAtomic(path, []byte("// js"), 0o644); err != nil {
			t.Fatalf("WriteFileAtomic() error: %v", err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("stat after write: %v", err)
		}
	})

	t.Run("replaces existing file", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		path := filepath.Join(dir, "f.txt")
		if err := os.WriteFile(path, []byte("old"), 0o644); err != nil {
			t.Fatalf("seed file: %v", err)
		}

		if err := WriteFileAtomic(path, []byte("new"), 0o644); err != nil {
			t.Fatalf("WriteFileAtomic() error: %v", err)
		}

		got, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read back: %v", err)
		}
		if string(got) != "new" {
			t.Errorf("content = %q, want %q", got, "new")
		}
	})

	t.Run("applies requested mode", func(t *testing.T) {
		t.Parallel()
		if runtime.GOOS == "windows" {
			t.Skip("POSIX permissions not enforced on Windows")
		}
		dir := t.TempDir()
		path := filepath.Join(dir, "script.sh")

		if err := WriteFileAtomic(path, []byte("#!/bin/sh\n"), 0o755); err != nil {
			t.Fatalf("WriteFileAtomic() error: %v", err)
		}

		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat: %v", err)
		}
		if got := info.Mode().Perm(); got != 0o755 {
			t.Errorf("mode = %o, want 0755", got)
		}
	})

	t.Run("empty path returns sentinel", func(t *testing.T) {
		t.Parallel()
		err := WriteFileAtomic("", []byte("x"), 0o644)
		if !errors.Is(err, ErrEmptyPath) {
			t.Errorf("error = %v, want ErrEmptyPath", err)
		}
	})

	t.Run("leaves no temp files behind", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		path := filepath.Join(dir, "f.txt")

		if err := WriteFileAtomic(path, []byte("data"), 0o644); err != nil {
			t.Fatalf("WriteFileAtomic() error: %v", err)
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatalf("readdir: %v", err)
		}
		if len(entries) != 1 {
			names := make([]string, 0, len(entries))
			for _, e := range entries {
				names = append(names, e.Name())
			}
			t.Errorf("directory entries = %v, want only f.txt", names)
		}
	})
}
