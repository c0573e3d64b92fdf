package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"eagle-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var errForeignTx = errors.New("memory: transaction was not started by this store")

// Tx is a pgx.Tx whose SQL methods are unused; only Commit and Rollback
// carry meaning. Embedding the interface keeps the method set complete.
type Tx struct {
	pgx.Tx

	store   *Store
	held    map[string]*rowLock
	updates map[uuid.UUID]domain.Account
	deletes map[uuid.UUID]struct{}
	inserts []domain.Transaction
	done    bool
}

func newTx(s *Store) *Tx {
	return &Tx{
		store:   s,
		held:    make(map[string]*rowLock),
		updates: make(map[uuid.UUID]domain.Account),
		deletes: make(map[uuid.UUID]struct{}),
	}
}

func asTx(tx pgx.Tx) (*Tx, error) {
	mt, ok := tx.(*Tx)
	if !ok || mt == nil {
		return nil, errForeignTx
	}
	if mt.done {
		return nil, pgx.ErrTxClosed
	}
	return mt, nil
}

func (t *Tx) lock(ctx context.Context, accountNumber string) error {
	if _, ok := t.held[accountNumber]; ok {
		return nil
	}
	l, err := t.store.acquire(ctx, accountNumber)
	if err != nil {
		return err
	}
	t.held[accountNumber] = l
	return nil
}

func (t *Tx) holds(accountNumber string) bool {
	_, ok := t.held[accountNumber]
	return ok
}

// Commit publishes staged writes atomically and releases every held lock.
func (t *Tx) Commit(context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	defer t.release()

	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range t.updates {
		if _, ok := s.accounts[id]; !ok {
			return fmt.Errorf("commit: account %s vanished", id)
		}
	}
	for id, updated := range t.updates {
		current := s.accounts[id]
		current.Name = updated.Name
		current.Balance = updated.Balance
		current.Touch(updated.UpdatedAt)
		s.accounts[id] = current
	}

	// Inserts are ordered so equal timestamps keep their write order.
	sort.SliceStable(t.inserts, func(i, j int) bool {
		return t.inserts[i].CreatedAt.Before(t.inserts[j].CreatedAt)
	})
	for _, txn := range t.inserts {
		s.seq++
		s.txns[txn.ID] = txnRecord{txn: txn, seq: s.seq}
		s.byAccount[txn.AccountID] = append(s.byAccount[txn.AccountID], txn.ID)
	}

	for id := range t.deletes {
		s.deleteAccountLocked(id)
	}

	return nil
}

// Rollback discards staged writes. Rolling back a finished Tx is a no-op.
func (t *Tx) Rollback(context.Context) error {
	if t.done {
		return nil
	}
	t.release()
	return nil
}

func (t *Tx) release() {
	t.done = true
	for number, l := range t.held {
		t.store.releaseLock(number, l)
		delete(t.held, number)
	}
	t.updates = nil
	t.deletes = nil
	t.inserts = nil
}
