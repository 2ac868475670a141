package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgx shared by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type txKey struct{}

// TxFromContext returns the transaction started by TxRunner.InTx, if any.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(txKey{}).(pgx.Tx)
	return tx
}

// Conn returns the transaction bound to ctx, falling back to the pool.
// Repositories call it for every statement so they join an enclosing
// transaction transparently.
func Conn(ctx context.Context, pool *pgxpool.Pool) Querier {
	if tx := TxFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

// Transactor runs fn inside a database transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

const defaultTxAttempts = 5

// TxRunner is the pgx Transactor. Transactions are SERIALIZABLE unless
// configured otherwise and are replayed on serialization failures.
type TxRunner struct {
	pool     *pgxpool.Pool
	iso      pgx.TxIsoLevel
	attempts int
}

// NewTxRunner creates a serializable TxRunner.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool, iso: pgx.Serializable, attempts: defaultTxAttempts}
}

// WithIsolation returns a copy of r using the given isolation level.
func (r *TxRunner) WithIsolation(iso pgx.TxIsoLevel) *TxRunner {
	cp := *r
	cp.iso = iso
	return &cp
}

// InTx runs fn in a transaction. A call nested inside another InTx joins the
// outer transaction instead of opening a new one.
func (r *TxRunner) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if TxFromContext(ctx) != nil {
		return fn(ctx)
	}
	return retryTx(ctx, r.attempts, func() error {
		return r.runOnce(ctx, fn)
	})
}

func (r *TxRunner) runOnce(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: r.iso})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// retryTx calls fn until it succeeds, fails with a non-retryable error, or
// attempts run out. Backoff grows linearly.
func retryTx(ctx context.Context, attempts int, fn func() error) error {
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if err == nil || !IsRetryable(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(i+1) * 10 * time.Millisecond):
		}
	}
	return fmt.Errorf("transaction aborted after %d attempts: %w", attempts, err)
}
