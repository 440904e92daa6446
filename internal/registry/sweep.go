package registry

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// sweepGracePeriod is how long a swept orphan gets to exit after SIGTERM
// before it is force-killed.
const sweepGracePeriod = 2 * time.Second

// sweepParallelism bounds concurrent orphan teardowns. Each teardown may
// block for sweepGracePeriod, so a small amount of parallelism keeps a
// sweep over many orphans from taking minutes.
const sweepParallelism = 4

// SweepStats summarizes one Sweep pass.
type SweepStats struct {
	Scanned     int // journal rows examined
	Live        int // skipped: owning process still running
	Unverified  int // skipped: engine pid alive but identity not confirmed
	Killed      int // verified orphan engines terminated
	RowsDeleted int
	DirsRemoved int
}

// sweepAction is the per-row outcome, aggregated into SweepStats.
type sweepAction int

const (
	actionSkippedLive sweepAction = iota
	actionSkippedUnverified
	actionKilled
	actionCleaned
)

type sweepOutcome struct {
	action      sweepAction
	rowDeleted  bool
	dirsRemoved int
}

// Sweep reclaims orphaned instances: rows whose owning process is gone.
// For each orphan it terminates the engine process (only after verifying
// the pid still belongs to this instance, so a recycled pid is never
// killed), removes ephemeral directories, and deletes the row.
//
// Sweep is a last-resort safety net for runs where deterministic teardown
// could not execute (killed test runner, interpreter crash). Per-row
// failures are logged and skipped; the error return covers only journal
// access itself.
func (r *Registry) Sweep(ctx context.Context) (SweepStats, error) {
	instances, err := r.List(ctx)
	if err != nil {
		return SweepStats{}, err
	}

	stats := SweepStats{Scanned: len(instances)}
	if len(instances) == 0 {
		return stats, nil
	}

	outcomes := make([]sweepOutcome, len(instances))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(sweepParallelism)

	for i, inst := range instances {
		g.Go(func() error {
			outcomes[i] = r.sweepOne(gCtx, inst)
			return nil
		})
	}

	// errgroup always returns nil here since goroutines always return nil.
	_ = g.Wait()

	for _, outcome := range outcomes {
		switch outcome.action {
		case actionSkippedLive:
			stats.Live++
		case actionSkippedUnverified:
			stats.Unverified++
		case actionKilled:
			stats.Killed++
		case actionCleaned:
		}
		if outcome.rowDeleted {
			stats.RowsDeleted++
		}
		stats.DirsRemoved += outcome.dirsRemoved
	}

	r.log.Info("registry sweep complete",
		"scanned", stats.Scanned,
		"live", stats.Live,
		"unverified", stats.Unverified,
		"killed", stats.Killed,
		"rows_deleted", stats.RowsDeleted,
		"dirs_removed", stats.DirsRemoved,
	)
	return stats, nil
}

// sweepOne handles a single journal row.
func (r *Registry) sweepOne(ctx context.Context, inst Instance) sweepOutcome {
	log := r.log.With("instance", inst.ID, "owner_pid", inst.OwnerPid, "engine_pid", inst.EnginePid)

	if pidAlive(inst.OwnerPid) {
		log.Debug("sweep: owner alive, skipping")
		return sweepOutcome{action: actionSkippedLive}
	}

	// The owner is gone but the engine pid may already have been recycled
	// by an unrelated process. Terminate only when the command line still
	// references this instance's work dir; on platforms where that cannot
	// be checked, a live pid is left alone.
	outcome := sweepOutcome{action: actionCleaned}
	if pidAlive(inst.EnginePid) {
		if !cmdlineReferences(inst.EnginePid, inst.WorkDir) {
			log.Debug("sweep: engine pid alive but identity unverified, skipping")
			return sweepOutcome{action: actionSkippedUnverified}
		}
		log.Info("sweep: terminating orphaned engine")
		if err := terminate(inst.EnginePid, sweepGracePeriod); err != nil {
			log.Warn("sweep: terminate orphan", "error", err)
			return sweepOutcome{action: actionSkippedUnverified}
		}
		outcome.action = actionKilled
	}

	outcome.dirsRemoved = r.removeDirs(inst, log)

	if err := r.Remove(ctx, inst.ID); err != nil {
		log.Warn("sweep: delete row", "error", err)
	} else {
		outcome.rowDeleted = true
	}
	return outcome
}

// removeDirs removes the instance's ephemeral directories, best-effort,
// and returns how many were removed.
func (r *Registry) removeDirs(inst Instance, log *slog.Logger) int {
	removed := 0
	if inst.Ephemeral && inst.WorkDir != "" {
		if err := os.RemoveAll(inst.WorkDir); err != nil {
			log.Warn("sweep: remove work dir", "dir", inst.WorkDir, "error", err)
		} else {
			removed++
		}
	}
	// A recorded socket dir is ephemeral by contract; skip it when nested
	// in the work dir, which the RemoveAll above already covered.
	if inst.SocketDir != "" && !isSubPath(inst.WorkDir, inst.SocketDir) {
		if err := os.RemoveAll(inst.SocketDir); err != nil {
			log.Warn("sweep: remove socket dir", "dir", inst.SocketDir, "error", err)
		} else {
			removed++
		}
	}
	return removed
}

// isSubPath reports whether child is base or lies under it.
func isSubPath(base, child string) bool {
	if base == "" || child == "" {
		return false
	}
	base, child = filepath.Clean(base), filepath.Clean(child)
	return child == base || strings.HasPrefix(child, base+string(filepath.Separator))
}
