package nodedeps

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// lockRetryInterval is how often a blocked process re-tries the install
// lock. 50ms keeps the wait after the holder finishes short without
// burning CPU on polling.
const lockRetryInterval = 50 * time.Millisecond

// lockInstallDir takes the cross-process lock serializing npm installs
// into dir. It blocks until the lock is held or ctx is done and returns a
// release function.
//
// The lock file stays on disk after release: removing it would race with
// another process that just acquired a lock on the same path.
func lockInstallDir(ctx context.Context, dir string, log *slog.Logger) (release func(), err error) {
	lockPath := filepath.Join(dir, installLockName)
	fl := flock.New(lockPath)

	locked, err := fl.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return nil, fmt.Errorf("lock install dir %s: %w", dir, err)
	}
	if !locked {
		// TryLockContext reports failures through err; a bare false only
		// appears when the context expired between retries.
		if ctx.Err() != nil {
			return nil, fmt.Errorf("lock install dir %s: %w", dir, ctx.Err())
		}
		return nil, fmt.Errorf("lock install dir %s: lock not acquired", dir)
	}

	return func() {
		// Close unlocks and drops the descriptor in one step.
		if err := fl.Close(); err != nil {
			log.Debug("release install lock", "path", lockPath, "error", err)
		}
	}, nil
}
