package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sethvargo/go-retry"
)

// WaitForReady blocks until the engine answers a real SQL round trip.
// The transport-level readiness wait in Start only proves the endpoint
// accepts connections; protocol warmup can lag behind that by a moment,
// so test fixtures that immediately issue queries call WaitForReady
// first.
//
// Each attempt opens a fresh connection, runs a probe query, and closes
// again; attempts are spaced by interval. The total budget is roughly
// attempts x interval on a cold engine.
func (m *Manager) WaitForReady(ctx context.Context, attempts int, interval time.Duration) error {
	if attempts < 1 {
		return fmt.Errorf("wait for ready: %w: attempts must be at least 1, got %d", ErrInvalidConfig, attempts)
	}
	if interval <= 0 {
		return fmt.Errorf("wait for ready: %w: interval must be positive, got %s", ErrInvalidConfig, interval)
	}

	info, err := m.ConnectionInfo()
	if err != nil {
		return err
	}
	uri := info.URI()

	// WithMaxRetries counts retries after the first attempt.
	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewConstant(interval)) //nolint:gosec // attempts >= 1 was checked above
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := pingOnce(ctx, uri); err != nil {
			m.log.Debug("readiness probe failed", "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("wait for ready: %w: %w", ErrNotReady, err)
	}
	return nil
}

// pingOnce opens a dedicated connection for a single probe query. The
// engine serves one session at a time, so the probe must not keep its
// slot occupied after the round trip.
func pingOnce(ctx context.Context, uri string) error {
	conn, err := pgx.Connect(ctx, uri)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	var one int
	if err := conn.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return errors.Join(fmt.Errorf("probe query: %w", err), conn.Close(ctx))
	}
	return conn.Close(ctx)
}
