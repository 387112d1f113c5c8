package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quernlabs/quern/core"
)

func TestTransactionScope(t *testing.T) {
	ctx := context.Background()

	t.Run("clean exit commits exactly once", func(t *testing.T) {
		conn := &fakeConn{tx: &fakeTx{}}
		pool := &fakePool{conns: []*fakeConn{conn}}
		engine := newTestEngine(t, pool)

		err := core.RunTransaction(ctx, engine, func(txCtx context.Context) error {
			if _, err := engine.Execute(txCtx, core.Raw("INSERT INTO buns (name) VALUES ('one')"), core.WithoutResults()); err != nil {
				return err
			}
			_, err := engine.Execute(txCtx, core.Raw("INSERT INTO buns (name) VALUES ('two')"), core.WithoutResults())
			return err
		})

		require.NoError(t, err)
		assert.Equal(t, []string{
			"INSERT INTO buns (name) VALUES ('one')",
			"INSERT INTO buns (name) VALUES ('two')",
		}, conn.tx.execs)
		assert.Equal(t, 1, conn.tx.commits)
		assert.Equal(t, 0, conn.tx.rollbacks)
		assert.Equal(t, 1, conn.closes)
	})

	t.Run("error exit rolls back exactly once", func(t *testing.T) {
		conn := &fakeConn{tx: &fakeTx{}}
		pool := &fakePool{conns: []*fakeConn{conn}}
		engine := newTestEngine(t, pool)
		boom := errors.New("boom")

		err := core.RunTransaction(ctx, engine, func(context.Context) error {
			return boom
		})

		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 0, conn.tx.commits)
		assert.Equal(t, 1, conn.tx.rollbacks)
		assert.Equal(t, 1, conn.closes)
	})

	t.Run("panic rolls back and releases", func(t *testing.T) {
		conn := &fakeConn{tx: &fakeTx{}}
		pool := &fakePool{conns: []*fakeConn{conn}}
		engine := newTestEngine(t, pool)

		require.Panics(t, func() {
			_ = core.RunTransaction(ctx, engine, func(context.Context) error {
				panic("kaboom")
			})
		})

		assert.Equal(t, 0, conn.tx.commits)
		assert.Equal(t, 1, conn.tx.rollbacks)
		assert.Equal(t, 1, conn.closes)
	})

	t.Run("explicit commit inside the scope wins", func(t *testing.T) {
		conn := &fakeConn{tx: &fakeTx{}}
		pool := &fakePool{conns: []*fakeConn{conn}}
		engine := newTestEngine(t, pool)

		err := core.RunTransaction(ctx, engine, func(txCtx context.Context) error {
			return core.TransactionFrom(txCtx).Commit(txCtx)
		})

		require.NoError(t, err)
		assert.Equal(t, 1, conn.tx.commits)
		assert.Equal(t, 0, conn.tx.rollbacks)
	})

	t.Run("explicit rollback then failure rolls back only once", func(t *testing.T) {
		conn := &fakeConn{tx: &fakeTx{}}
		pool := &fakePool{conns: []*fakeConn{conn}}
		engine := newTestEngine(t, pool)
		boom := errors.New("boom")

		err := core.RunTransaction(ctx, engine, func(txCtx context.Context) error {
			if err := core.TransactionFrom(txCtx).Rollback(txCtx); err != nil {
				return err
			}
			return boom
		})

		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, conn.tx.rollbacks)
		assert.Equal(t, 0, conn.tx.commits)
		assert.Equal(t, 1, conn.closes)
	})
}

func TestTransactionStateMachine(t *testing.T) {
	ctx := context.Background()

	t.Run("begin registers in the returned context only", func(t *testing.T) {
		pool := &fakePool{}
		engine := newTestEngine(t, pool)

		tx := engine.Transaction()
		txCtx, err := tx.Begin(ctx)
		require.NoError(t, err)
		assert.Same(t, tx, core.TransactionFrom(txCtx))
		assert.Nil(t, core.TransactionFrom(ctx))

		require.NoError(t, tx.Close(ctx, nil))
	})

	t.Run("begin twice fails", func(t *testing.T) {
		pool := &fakePool{}
		engine := newTestEngine(t, pool)

		tx := engine.Transaction()
		_, err := tx.Begin(ctx)
		require.NoError(t, err)
		_, err = tx.Begin(ctx)
		assert.Error(t, err)

		require.NoError(t, tx.Close(ctx, nil))
	})

	t.Run("acquire failure surfaces unchanged", func(t *testing.T) {
		exhausted := errors.New("acquire timeout")
		pool := &fakePool{acquireErr: exhausted}
		engine := newTestEngine(t, pool)

		_, err := engine.Transaction().Begin(ctx)
		assert.ErrorIs(t, err, exhausted)
	})

	t.Run("driver begin failure returns the connection", func(t *testing.T) {
		boom := errors.New("cannot begin")
		conn := &fakeConn{beginErr: boom}
		pool := &fakePool{conns: []*fakeConn{conn}}
		engine := newTestEngine(t, pool)

		_, err := engine.Transaction().Begin(ctx)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, conn.closes)
	})

	t.Run("execute lazily activates an inactive transaction", func(t *testing.T) {
		conn := &fakeConn{tx: &fakeTx{}}
		pool := &fakePool{conns: []*fakeConn{conn}}
		engine := newTestEngine(t, pool)

		tx := engine.Transaction()
		_, err := tx.Execute(ctx, core.Raw("SELECT 1"))
		require.NoError(t, err)
		assert.Equal(t, 1, pool.acquired)
		assert.Equal(t, []string{"SELECT 1"}, conn.tx.queries)

		require.NoError(t, tx.Close(ctx, nil))
	})

	t.Run("execute on a closed transaction fails", func(t *testing.T) {
		conn := &fakeConn{tx: &fakeTx{}}
		pool := &fakePool{conns: []*fakeConn{conn}}
		engine := newTestEngine(t, pool)

		tx := engine.Transaction()
		txCtx, err := tx.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.Close(ctx, nil))

		_, err = engine.Execute(txCtx, core.Raw("SELECT 1"))
		assert.Error(t, err)
	})

	t.Run("close is a no-op after the first call", func(t *testing.T) {
		conn := &fakeConn{tx: &fakeTx{}}
		pool := &fakePool{conns: []*fakeConn{conn}}
		engine := newTestEngine(t, pool)

		tx := engine.Transaction()
		_, err := tx.Begin(ctx)
		require.NoError(t, err)

		require.NoError(t, tx.Close(ctx, nil))
		require.NoError(t, tx.Close(ctx, errors.New("late failure")))
		assert.Equal(t, 1, conn.closes)
		assert.Equal(t, 1, conn.tx.commits)
		assert.Equal(t, 0, conn.tx.rollbacks)
	})

	t.Run("close of an inactive transaction is a no-op", func(t *testing.T) {
		pool := &fakePool{}
		engine := newTestEngine(t, pool)

		assert.NoError(t, engine.Transaction().Close(ctx, nil))
		assert.Equal(t, 0, pool.acquired)
	})
}

func TestCommitRollbackIdempotence(t *testing.T) {
	ctx := context.Background()

	t.Run("rollback after commit is a no-op", func(t *testing.T) {
		conn := &fakeConn{tx: &fakeTx{}}
		pool := &fakePool{conns: []*fakeConn{conn}}
		engine := newTestEngine(t, pool)

		tx := engine.Transaction()
		_, err := tx.Begin(ctx)
		require.NoError(t, err)

		require.NoError(t, tx.Commit(ctx))
		require.NoError(t, tx.Rollback(ctx))
		require.NoError(t, tx.Commit(ctx))
		assert.Equal(t, 1, conn.tx.commits)
		assert.Equal(t, 0, conn.tx.rollbacks)

		require.NoError(t, tx.Close(ctx, nil))
	})

	t.Run("commit after rollback is a no-op", func(t *testing.T) {
		conn := &fakeConn{tx: &fakeTx{}}
		pool := &fakePool{conns: []*fakeConn{conn}}
		engine := newTestEngine(t, pool)

		tx := engine.Transaction()
		_, err := tx.Begin(ctx)
		require.NoError(t, err)

		require.NoError(t, tx.Rollback(ctx))
		require.NoError(t, tx.Commit(ctx))
		assert.Equal(t, 0, conn.tx.commits)
		assert.Equal(t, 1, conn.tx.rollbacks)

		require.NoError(t, tx.Close(ctx, nil))
	})

	t.Run("a failed commit may be retried", func(t *testing.T) {
		ftx := &fakeTx{commitErr: errors.New("deadlock detected")}
		conn := &fakeConn{tx: ftx}
		pool := &fakePool{conns: []*fakeConn{conn}}
		engine := newTestEngine(t, pool)

		tx := engine.Transaction()
		_, err := tx.Begin(ctx)
		require.NoError(t, err)

		assert.Error(t, tx.Commit(ctx))
		ftx.commitErr = nil
		assert.NoError(t, tx.Commit(ctx))
		assert.Equal(t, 2, ftx.commits)

		require.NoError(t, tx.Close(ctx, nil))
	})
}

func TestConcurrentContextIsolation(t *testing.T) {
	ctx := context.Background()
	connA := &fakeConn{tx: &fakeTx{}}
	connB := &fakeConn{tx: &fakeTx{}}
	pool := &fakePool{conns: []*fakeConn{connA, connB}}
	engine := newTestEngine(t, pool)

	txA := engine.Transaction()
	ctxA, err := txA.Begin(ctx)
	require.NoError(t, err)
	txB := engine.Transaction()
	ctxB, err := txB.Begin(ctx)
	require.NoError(t, err)

	assert.Same(t, txA, core.TransactionFrom(ctxA))
	assert.Same(t, txB, core.TransactionFrom(ctxB))

	_, err = engine.Execute(ctxA, core.Raw("SELECT 'a'"))
	require.NoError(t, err)
	_, err = engine.Execute(ctxB, core.Raw("SELECT 'b'"))
	require.NoError(t, err)

	assert.Equal(t, []string{"SELECT 'a'"}, connA.tx.queries)
	assert.Equal(t, []string{"SELECT 'b'"}, connB.tx.queries)

	require.NoError(t, txA.Close(ctx, nil))
	require.NoError(t, txB.Close(ctx, nil))
}
