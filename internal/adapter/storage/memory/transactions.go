package memory

import (
	"context"
	"sort"

	"eagle-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	s *Store
}

// NewTransactionRepo creates a TransactionRepo over s.
func NewTransactionRepo(s *Store) *TransactionRepo {
	return &TransactionRepo{s: s}
}

// Create stages the entry on tx; it becomes readable when tx commits.
func (r *TransactionRepo) Create(_ context.Context, tx pgx.Tx, t *domain.Transaction) error {
	mt, err := asTx(tx)
	if err != nil {
		return err
	}
	mt.inserts = append(mt.inserts, *t)
	return nil
}

func (r *TransactionRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rec, ok := r.s.txns[id]
	if !ok {
		return nil, nil
	}
	t := rec.txn
	return &t, nil
}

// ListByAccount returns the account's entries newest first, ties broken by write order.
func (r *TransactionRepo) ListByAccount(_ context.Context, accountID uuid.UUID) ([]domain.Transaction, error) {
	r.s.mu.RLock()
	ids := r.s.byAccount[accountID]
	recs := make([]txnRecord, 0, len(ids))
	for _, id := range ids {
		recs = append(recs, r.s.txns[id])
	}
	r.s.mu.RUnlock()

	sort.Slice(recs, func(i, j int) bool {
		if recs[i].txn.CreatedAt.Equal(recs[j].txn.CreatedAt) {
			return recs[i].seq > recs[j].seq
		}
		return recs[i].txn.CreatedAt.After(recs[j].txn.CreatedAt)
	})

	txns := make([]domain.Transaction, len(recs))
	for i, rec := range recs {
		txns[i] = rec.txn
	}
	return txns, nil
}
