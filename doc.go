// Package pgliteenv provides a lightweight embedded-PostgreSQL testing helper.
//
// pgliteenv manages a PGlite engine (an in-memory PostgreSQL-compatible
// database running under Node.js) as a subprocess, exposes it over a Unix
// domain socket or TCP port, and hands a connection descriptor to any
// PostgreSQL client. It owns the whole lifecycle: endpoint resolution,
// dependency installation, process spawn, readiness probing, and
// deterministic teardown with no orphaned processes or leaked socket files.
//
// # Basic Usage
//
//	import "github.com/giantswarm/pgliteenv"
//
//	ctx := context.Background()
//
//	m, err := pgliteenv.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := m.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer m.Stop(ctx)
//
//	info, err := m.ConnectionInfo()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// import "github.com/jackc/pgx/v5"
//	conn, err := pgx.Connect(ctx, info.URI())
//	// Use conn...
//
// Or scoped, with the teardown guaranteed on every exit path:
//
//	err := pgliteenv.Run(ctx, func(ctx context.Context, info *pgliteenv.ConnectionInfo) error {
//	    conn, err := pgx.Connect(ctx, info.URI())
//	    if err != nil {
//	        return err
//	    }
//	    defer conn.Close(ctx)
//	    // Use conn...
//	    return nil
//	})
//
// # Parallel Testing
//
// Each Manager owns one engine with a unique endpoint, so parallel test
// workers get isolation by running one Manager each:
//
//	func TestSomething(t *testing.T) {
//	    t.Parallel()
//	    m, err := pgliteenv.New()
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    if err := m.Start(t.Context()); err != nil {
//	        t.Fatal(err)
//	    }
//	    t.Cleanup(func() { _ = m.Stop(context.Background()) })
//	    // ...
//	}
//
// # Single Connection
//
// The engine serves one connection at a time. This is ideal for test
// fixtures (one test, one session) but means pgliteenv is not a pooled or
// production database; clients that open concurrent connections will
// block or fail.
package pgliteenv
