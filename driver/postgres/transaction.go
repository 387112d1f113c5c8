package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/quernlabs/quern/core"
	"github.com/quernlabs/quern/db"
)

//region Transaction

type txState int

const (
	txInactive txState = iota
	txActive
	txClosed
)

func (s txState) String() string {
	switch s {
	case txInactive:
		return "inactive"
	case txActive:
		return "active"
	default:
		return "closed"
	}
}

// Transaction is a scoped execution unit bound to one pooled connection
// and one driver-side transaction for its whole lifetime.
//
// It is created inert by Engine.Transaction, activated by Begin (which
// also registers it in the returned context) and finished by Close,
// which decides between rollback, commit and nothing, then returns the
// connection to the pool. A transaction serves one logical execution
// context; it is not safe for concurrent use.
//
// Example:
//
//	err := core.RunTransaction(ctx, engine, func(txCtx context.Context) error {
//	    _, err := engine.Execute(txCtx, core.Raw("INSERT INTO buns (name) VALUES ('one')"))
//	    return err
//	})
type Transaction struct {
	engine *Engine
	id     string

	state      txState
	conn       db.Conn
	tx         db.Tx
	committed  bool
	rolledBack bool
}

var _ core.Transaction = (*Transaction)(nil)

func newTransaction(engine *Engine) *Transaction {
	return &Transaction{
		engine: engine,
		id:     uuid.NewString(),
	}
}

// ID returns the transaction's correlation id, as it appears in logs
// and event payloads.
func (t *Transaction) ID() string { return t.id }

// Begin activates the transaction: it acquires a connection from the
// engine's pool, opens a transaction on it and returns a context with
// this transaction registered. The parent context stays untouched, so
// dropping the returned context restores the previous registration.
func (t *Transaction) Begin(ctx context.Context) (context.Context, error) {
	if t.state != txInactive {
		return ctx, fmt.Errorf("postgres: cannot begin %s transaction %s", t.state, t.id)
	}
	if err := t.activate(ctx); err != nil {
		return ctx, err
	}
	return core.WithTransaction(ctx, t), nil
}

// Execute runs a query string on the transaction's connection. Pooling
// options do not apply here; the fetch option is honored.
func (t *Transaction) Execute(ctx context.Context, qs core.QueryString, opts ...core.ExecOption) (core.Rows, error) {
	switch t.state {
	case txClosed:
		return nil, fmt.Errorf("postgres: transaction %s is closed", t.id)
	case txInactive:
		// Begin normally runs first; acquire lazily for direct use.
		if err := t.activate(ctx); err != nil {
			return nil, err
		}
	}
	cfg := core.NewExecConfig(opts...)
	return runQuery(ctx, t.tx, qs, cfg.FetchResults, true)
}

// Commit finalizes the transaction. Once a commit or rollback has taken
// effect, further calls are no-ops returning nil. The flag is only set
// when the driver reports success, so a failed commit may be retried.
func (t *Transaction) Commit(ctx context.Context) error {
	if t.committed || t.rolledBack {
		return nil
	}
	if t.state != txActive {
		return fmt.Errorf("postgres: cannot commit %s transaction %s", t.state, t.id)
	}
	if err := t.tx.Commit(ctx); err != nil {
		return err
	}
	t.committed = true
	core.Emit(core.EventCommit, core.CommitPayload{TransactionID: t.id})
	return nil
}

// Rollback discards the transaction. Once a commit or rollback has
// taken effect, further calls are no-ops returning nil.
func (t *Transaction) Rollback(ctx context.Context) error {
	if t.committed || t.rolledBack {
		return nil
	}
	if t.state != txActive {
		return fmt.Errorf("postgres: cannot roll back %s transaction %s", t.state, t.id)
	}
	if err := t.tx.Rollback(ctx); err != nil {
		return err
	}
	t.rolledBack = true
	core.Emit(core.EventRollback, core.RollbackPayload{TransactionID: t.id})
	return nil
}

// Close ends the transaction scope. Exiting with a non-nil cause rolls
// back unless a rollback already ran; a clean exit commits unless the
// caller already committed or rolled back. The connection returns to
// the pool in every case, exactly once. Closing an inactive or already
// closed transaction is a no-op.
func (t *Transaction) Close(ctx context.Context, cause error) error {
	if t.state != txActive {
		return nil
	}

	var err error
	switch {
	case cause != nil && !t.rolledBack:
		err = t.Rollback(ctx)
	case cause == nil && !t.committed && !t.rolledBack:
		err = t.Commit(ctx)
	}

	_ = t.conn.Close(ctx)
	t.conn = nil
	t.tx = nil
	t.state = txClosed
	t.engine.logger.DebugContext(ctx, "transaction closed",
		"tx_id", t.id, "committed", t.committed, "rolled_back", t.rolledBack)
	return err
}

func (t *Transaction) activate(ctx context.Context) error {
	pool, err := t.engine.CreateConnectionPool(ctx)
	if err != nil {
		return err
	}
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	tx, err := conn.Begin(ctx)
	if err != nil {
		_ = conn.Close(ctx)
		return err
	}
	t.conn = conn
	t.tx = tx
	t.state = txActive
	t.engine.logger.DebugContext(ctx, "transaction started", "tx_id", t.id)
	return nil
}

//endregion
