// Package pgutil provides small query helpers for tests talking to an
// engine started by pgliteenv: pinging, version inspection, and
// information_schema lookups, without each test wiring up its own driver
// boilerplate.
//
// Every helper opens its own connection and closes it before returning.
// The embedded engine serves one session at a time, so holding a
// connection across calls would starve every other client; short-lived
// connections keep the single slot available.
package pgutil

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/jackc/pgx/v5"
)

// connect opens a single-use connection for one helper call.
func connect(ctx context.Context, connString string) (*pgx.Conn, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	return conn, nil
}

// Ping verifies the database answers a round trip on connString.
func Ping(ctx context.Context, connString string) error {
	conn, err := connect(ctx, connString)
	if err != nil {
		return err
	}
	return errors.Join(conn.Ping(ctx), conn.Close(context.WithoutCancel(ctx)))
}

// ServerVersion returns the server's version() string, e.g.
// "PostgreSQL 17.4 on x86_64-pc-linux-gnu...".
func ServerVersion(ctx context.Context, connString string) (version string, err error) {
	conn, err := connect(ctx, connString)
	if err != nil {
		return "", err
	}
	defer func() {
		err = errors.Join(err, conn.Close(context.WithoutCancel(ctx)))
	}()

	if err := conn.QueryRow(ctx, "SELECT version()").Scan(&version); err != nil {
		return "", fmt.Errorf("query version: %w", err)
	}
	return version, nil
}

// MajorVersion extracts the major version number from a server version
// string. It accepts both the full version() form ("PostgreSQL 17.4 on
// ...") and the bare server_version form ("17.4").
func MajorVersion(version string) (int, error) {
	start := strings.IndexFunc(version, unicode.IsDigit)
	if start < 0 {
		return 0, fmt.Errorf("no major version in %q", version)
	}
	end := start
	for end < len(version) && version[end] >= '0' && version[end] <= '9' {
		end++
	}
	major, err := strconv.Atoi(version[start:end])
	if err != nil {
		return 0, fmt.Errorf("no major version in %q", version)
	}
	return major, nil
}

// TableNames returns the base table names in the given schema, sorted.
// An empty schema means "public".
func TableNames(ctx context.Context, connString, schema string) (names []string, err error) {
	if schema == "" {
		schema = "public"
	}
	conn, err := connect(ctx, connString)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, conn.Close(context.WithoutCancel(ctx)))
	}()

	rows, err := conn.Query(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1
		AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`, schema)
	if err != nil {
		return nil, fmt.Errorf("query table names: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table names: %w", err)
	}
	return names, nil
}

// TableExists reports whether the named table exists in the given schema.
// An empty schema means "public".
func TableExists(ctx context.Context, connString, schema, table string) (exists bool, err error) {
	if schema == "" {
		schema = "public"
	}
	conn, err := connect(ctx, connString)
	if err != nil {
		return false, err
	}
	defer func() {
		err = errors.Join(err, conn.Close(context.WithoutCancel(ctx)))
	}()

	err = conn.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = $1
			AND table_name = $2
		)
	`, schema, table).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query table existence: %w", err)
	}
	return exists, nil
}

// Exec runs a statement and returns the number of rows it affected.
func Exec(ctx context.Context, connString, stmt string, args ...any) (affected int64, err error) {
	conn, err := connect(ctx, connString)
	if err != nil {
		return 0, err
	}
	defer func() {
		err = errors.Join(err, conn.Close(context.WithoutCancel(ctx)))
	}()

	tag, err := conn.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("exec: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Query runs a query and returns all result rows, each as a slice of
// driver values in column order.
func Query(ctx context.Context, connString, query string, args ...any) (result [][]any, err error) {
	conn, err := connect(ctx, connString)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, conn.Close(context.WithoutCancel(ctx)))
	}()

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		result = append(result, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return result, nil
}
