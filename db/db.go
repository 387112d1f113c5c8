// Package db declares the narrow interfaces an engine consumes from the
// underlying database driver and connection pool: get and return a
// connection, open and close the pool, execute a statement, fetch its
// rows, commit and roll back.
//
// Engines are written against these interfaces rather than a concrete
// driver, so driver adapters stay interchangeable and engines stay
// testable without a live database.
package db

import "context"

// Rows is a driver-side handle over the result of one statement.
type Rows interface {
	// Next advances to the next row, reporting whether one exists.
	Next() bool
	// Values returns the values of the current row in column order.
	Values() ([]any, error)
	// Columns returns the result's column names in order.
	Columns() []string
	// Err returns the error, if any, that ended iteration.
	Err() error
	// Close releases the handle. Safe to call more than once.
	Close()
}

// Tx is a driver-side transaction bound to one connection.
type Tx interface {
	// Query executes a statement and returns its rows.
	Query(ctx context.Context, sql string) (Rows, error)
	// Exec executes a statement, discarding any result rows.
	Exec(ctx context.Context, sql string) error
	// Commit makes the transaction's changes permanent.
	Commit(ctx context.Context) error
	// Rollback discards the transaction's changes.
	Rollback(ctx context.Context) error
}

// Conn is a single database connection.
//
// For pooled connections Close returns the connection to its pool; for
// standalone connections it closes the socket. Closing twice is a no-op.
type Conn interface {
	// Query executes a statement and returns its rows.
	Query(ctx context.Context, sql string) (Rows, error)
	// Exec executes a statement, discarding any result rows.
	Exec(ctx context.Context, sql string) error
	// Begin opens a transaction on this connection.
	Begin(ctx context.Context) (Tx, error)
	// Close gives the connection back (pooled) or closes it (standalone).
	Close(ctx context.Context) error
}

// Pool is a bounded set of reusable connections.
//
// Blocking, queuing and exhaustion semantics are wholly owned by the
// pool implementation; errors from Acquire surface to callers unchanged.
type Pool interface {
	// Acquire borrows a connection, blocking per the pool's semantics.
	Acquire(ctx context.Context) (Conn, error)
	// Ping verifies the pool can reach the database.
	Ping(ctx context.Context) error
	// Close closes the pool, waiting for borrowed connections to return.
	Close()
}
