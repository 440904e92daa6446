// Package process provides utilities for managing external process lifecycle.
//
// It defines BaseProcess for common process start/stop behavior, the Stoppable
// interface, StopCloseAndNil for atomic cleanup, and LogFiles for capturing
// process stdout/stderr to files and recovering their tails for diagnostics.
package process
