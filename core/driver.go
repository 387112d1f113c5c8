// Package core provides the fundamental building blocks of the quern
// persistence layer. It defines the engine and transaction contracts,
// the raw result shape, and the query-string value consumed by engines.
package core

import "context"

// QueryString is any value convertible to its textual SQL representation.
//
// Query construction itself belongs to the layers above the engine; an
// engine only ever sees the final SQL text.
type QueryString interface {
	String() string
}

// Raw is the simplest QueryString: a literal SQL string.
type Raw string

// String returns the SQL text unchanged.
func (r Raw) String() string { return string(r) }

// Row maps column names to the values of a single result row.
type Row map[string]any

// Rows is an ordered sequence of result rows.
//
// A nil Rows means results were not fetched at all (execution without
// result retrieval); a fetched query that matched nothing yields a
// non-nil empty Rows. Callers distinguish the two by the fetch option
// they passed, never by probing the slice.
type Rows []Row

// Engine defines the contract for database engines.
//
// An engine owns a connection pool, executes query strings against it,
// and creates transactions. Execution issued through an engine while a
// transaction is registered in the calling context is routed into that
// transaction instead of the pool.
type Engine interface {
	// Execute runs a query string and returns its rows, honoring the
	// given execution options.
	Execute(ctx context.Context, qs QueryString, opts ...ExecOption) (Rows, error)
	// Transaction returns a new, inactive transaction bound to this engine.
	Transaction() Transaction
	// Close releases the engine's connection pool.
	Close(ctx context.Context) error
}

// Transaction defines the contract for a scoped execution unit bound to
// a single connection for its whole lifetime.
//
// A transaction moves through three states: inactive (just created),
// active (connection acquired, registered in a context) and closed
// (connection returned). Close always runs exactly one of rollback,
// commit, or nothing, depending on how the scope exits.
type Transaction interface {
	// Begin activates the transaction: it acquires a connection, opens
	// the driver-side transaction and returns a context carrying the
	// transaction, so that engine executions inside the scope are routed
	// into it. The parent context is left untouched.
	Begin(ctx context.Context) (context.Context, error)
	// Execute runs a query string on the transaction's connection.
	Execute(ctx context.Context, qs QueryString, opts ...ExecOption) (Rows, error)
	// Commit finalizes the transaction. After a commit or rollback has
	// taken effect, further calls are no-ops.
	Commit(ctx context.Context) error
	// Rollback discards the transaction. After a commit or rollback has
	// taken effect, further calls are no-ops.
	Rollback(ctx context.Context) error
	// Close ends the scope: it rolls back when cause is non-nil and no
	// rollback ran yet, commits when the scope exits clean without an
	// explicit commit or rollback, and otherwise does nothing more.
	// The connection is returned in every case. Closing an inactive or
	// already closed transaction is a no-op.
	Close(ctx context.Context, cause error) error
}
