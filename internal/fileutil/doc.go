// Package fileutil provides file operation utilities for directory and file management.
//
// EnsureDir creates directories recursively, EnsurePrivateDir creates
// owner-only directories for Unix socket endpoints, and WriteFileAtomic
// writes files via temp-file-then-rename so concurrent readers never
// observe partial contents. These are used throughout pgliteenv for
// preparing instance work directories and generating the Node.js
// runtime files the engine is launched from.
package fileutil
