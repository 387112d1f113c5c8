// Package postgres implements the quern engine contract on top of
// jackc/pgx v5 and its pgxpool connection pool. This file adapts the
// pgx types to the db interfaces consumed by the engine.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quernlabs/quern/db"
)

// Interface implementation checks.
var _ db.Pool = (*PoolAdapter)(nil)
var _ db.Conn = (*ConnAdapter)(nil)
var _ db.Conn = (*DirectConnAdapter)(nil)
var _ db.Tx = (*TxAdapter)(nil)
var _ db.Rows = (*RowsAdapter)(nil)

//region PoolAdapter

// PoolAdapter adapts *pgxpool.Pool to the db.Pool interface.
type PoolAdapter struct {
	pool *pgxpool.Pool
}

// NewPoolAdapter wraps an existing pgx pool.
func NewPoolAdapter(pool *pgxpool.Pool) *PoolAdapter {
	return &PoolAdapter{pool: pool}
}

func (a *PoolAdapter) Acquire(ctx context.Context) (db.Conn, error) {
	conn, err := a.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &ConnAdapter{conn: conn}, nil
}

func (a *PoolAdapter) Ping(ctx context.Context) error {
	return a.pool.Ping(ctx)
}

func (a *PoolAdapter) Close() {
	a.pool.Close()
}

//endregion

//region ConnAdapter

// ConnAdapter adapts a pooled *pgxpool.Conn to db.Conn. Close releases
// the connection back to its pool.
type ConnAdapter struct {
	conn *pgxpool.Conn
}

func (a *ConnAdapter) Query(ctx context.Context, sql string) (db.Rows, error) {
	rows, err := a.conn.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	return &RowsAdapter{rows: rows}, nil
}

func (a *ConnAdapter) Exec(ctx context.Context, sql string) error {
	_, err := a.conn.Exec(ctx, sql)
	return err
}

func (a *ConnAdapter) Begin(ctx context.Context) (db.Tx, error) {
	tx, err := a.conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &TxAdapter{tx: tx}, nil
}

func (a *ConnAdapter) Close(_ context.Context) error {
	if a.conn != nil {
		a.conn.Release()
		a.conn = nil
	}
	return nil
}

//endregion

//region DirectConnAdapter

// DirectConnAdapter adapts a standalone *pgx.Conn to db.Conn. Close
// closes the underlying connection; the caller owns its lifecycle.
type DirectConnAdapter struct {
	conn *pgx.Conn
}

// NewDirectConnAdapter wraps an existing standalone connection.
func NewDirectConnAdapter(conn *pgx.Conn) *DirectConnAdapter {
	return &DirectConnAdapter{conn: conn}
}

func (a *DirectConnAdapter) Query(ctx context.Context, sql string) (db.Rows, error) {
	rows, err := a.conn.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	return &RowsAdapter{rows: rows}, nil
}

func (a *DirectConnAdapter) Exec(ctx context.Context, sql string) error {
	_, err := a.conn.Exec(ctx, sql)
	return err
}

func (a *DirectConnAdapter) Begin(ctx context.Context) (db.Tx, error) {
	tx, err := a.conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &TxAdapter{tx: tx}, nil
}

func (a *DirectConnAdapter) Close(ctx context.Context) error {
	if a.conn == nil || a.conn.IsClosed() {
		return nil
	}
	return a.conn.Close(ctx)
}

//endregion

//region TxAdapter

// TxAdapter adapts pgx.Tx to db.Tx.
type TxAdapter struct {
	tx pgx.Tx
}

func (a *TxAdapter) Query(ctx context.Context, sql string) (db.Rows, error) {
	rows, err := a.tx.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	return &RowsAdapter{rows: rows}, nil
}

func (a *TxAdapter) Exec(ctx context.Context, sql string) error {
	_, err := a.tx.Exec(ctx, sql)
	return err
}

func (a *TxAdapter) Commit(ctx context.Context) error {
	return a.tx.Commit(ctx)
}

func (a *TxAdapter) Rollback(ctx context.Context) error {
	return a.tx.Rollback(ctx)
}

//endregion

//region RowsAdapter

// RowsAdapter adapts pgx.Rows to db.Rows.
type RowsAdapter struct {
	rows pgx.Rows
}

func (a *RowsAdapter) Next() bool {
	return a.rows.Next()
}

func (a *RowsAdapter) Values() ([]any, error) {
	return a.rows.Values()
}

func (a *RowsAdapter) Columns() []string {
	fields := a.rows.FieldDescriptions()
	names := make([]string, len(fields))
	for i, field := range fields {
		names[i] = field.Name
	}
	return names
}

func (a *RowsAdapter) Err() error {
	return a.rows.Err()
}

func (a *RowsAdapter) Close() {
	a.rows.Close()
}

//endregion
