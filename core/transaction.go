// Package core provides the fundamental building blocks of the quern
// persistence layer. This file defines transaction registration in a
// context and the scoped execution helper built on top of it.
package core

import (
	"context"
	"fmt"
)

// transactionKey is an unexported type used as the key for storing a
// Transaction in a context.Context. Using a private type prevents
// collisions with other context values.
type transactionKey struct{}

// WithTransaction registers a Transaction in the given context.
//
// Engine executions performed with the returned context are routed into
// the transaction. The parent context is not modified, so each logical
// execution context sees its own registration: concurrent contexts never
// observe each other's transaction, and leaving a scope restores whatever
// the parent context held.
func WithTransaction(ctx context.Context, tx Transaction) context.Context {
	return context.WithValue(ctx, transactionKey{}, tx)
}

// TransactionFrom extracts the Transaction registered in the context,
// if any.
//
// Returns nil if the context does not carry a transaction.
func TransactionFrom(ctx context.Context) Transaction {
	if v, ok := ctx.Value(transactionKey{}).(Transaction); ok {
		return v
	}
	return nil
}

// TransactionFunc is the callback signature used for scoped transactions.
//
// It receives the context carrying the transaction; executions through
// the engine with this context join the transaction.
type TransactionFunc func(txCtx context.Context) error

// RunTransaction executes a function inside a transaction scope,
// handling commit and rollback automatically.
//
// The transaction is activated before fn runs and closed on every exit
// path: if fn returns an error or panics, the transaction rolls back;
// if fn succeeds and did not commit or roll back explicitly, it commits.
// The connection returns to the pool in all cases.
//
// Example:
//
//	err := core.RunTransaction(ctx, engine, func(txCtx context.Context) error {
//	    if _, err := engine.Execute(txCtx, core.Raw("INSERT INTO buns (name) VALUES ('one')")); err != nil {
//	        return err
//	    }
//	    _, err := engine.Execute(txCtx, core.Raw("INSERT INTO buns (name) VALUES ('two')"))
//	    return err
//	})
func RunTransaction(ctx context.Context, engine Engine, fn TransactionFunc) error {
	tx := engine.Transaction()
	txCtx, err := tx.Begin(ctx)
	if err != nil {
		return err
	}
	fnErr := runGuarded(txCtx, tx, fn)
	closeErr := tx.Close(ctx, fnErr)
	if fnErr != nil {
		return fnErr
	}
	return closeErr
}

// runGuarded runs fn and converts a panic into a closed transaction
// before re-panicking, so the connection is returned even then.
func runGuarded(txCtx context.Context, tx Transaction, fn TransactionFunc) error {
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Close(txCtx, fmt.Errorf("panic during transaction: %v", r))
			panic(r)
		}
	}()
	return fn(txCtx)
}
