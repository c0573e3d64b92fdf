package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Transactor implements ports.DBTransactor.
// Every transaction it opens carries local lock and statement timeouts so
// no ledger operation waits on a row lock indefinitely.
type Transactor struct {
	pool             Pool
	lockTimeout      time.Duration
	statementTimeout time.Duration
}

// NewTransactor creates a new Transactor wrapping the connection pool.
// Zero timeouts leave the server defaults in place.
func NewTransactor(pool Pool, lockTimeout, statementTimeout time.Duration) *Transactor {
	return &Transactor{pool: pool, lockTimeout: lockTimeout, statementTimeout: statementTimeout}
}

// Begin starts a READ COMMITTED transaction; callers serialise on rows with SELECT ... FOR UPDATE.
func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := t.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, classify("begin tx", err)
	}

	if err := t.setLocal(ctx, tx, "lock_timeout", t.lockTimeout); err != nil {
		_ = tx.Rollback(ctx)
		return nil, err
	}
	if err := t.setLocal(ctx, tx, "statement_timeout", t.statementTimeout); err != nil {
		_ = tx.Rollback(ctx)
		return nil, err
	}

	return &classifiedTx{Tx: tx}, nil
}

// SET does not take bind parameters; the value is an integer millisecond count.
func (t *Transactor) setLocal(ctx context.Context, tx pgx.Tx, name string, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL %s = %d", name, d.Milliseconds())); err != nil {
		return classify("set "+name, err)
	}
	return nil
}

// classifiedTx reports commit failures with the same kinds as statement failures.
type classifiedTx struct {
	pgx.Tx
}

func (tx *classifiedTx) Commit(ctx context.Context) error {
	return classify("commit tx", tx.Tx.Commit(ctx))
}
