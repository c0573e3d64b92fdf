package memory

import (
	"context"
	"fmt"
	"sort"

	"eagle-ledger/internal/core/domain"
	"eagle-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct {
	s *Store
}

// NewAccountRepo creates an AccountRepo over s.
func NewAccountRepo(s *Store) *AccountRepo {
	return &AccountRepo{s: s}
}

func (r *AccountRepo) Create(_ context.Context, a *domain.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, taken := r.s.byNumber[a.AccountNumber]; taken {
		return fmt.Errorf("insert account %s: %w", a.AccountNumber, ports.ErrDuplicateKey)
	}
	r.s.accounts[a.ID] = *a
	r.s.byNumber[a.AccountNumber] = a.ID
	return nil
}

func (r *AccountRepo) GetByNumber(_ context.Context, accountNumber string) (*domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.byNumber[accountNumber]
	if !ok {
		return nil, nil
	}
	a := r.s.accounts[id]
	return &a, nil
}

// GetByNumberForUpdate takes the account lock for tx before reading.
// The lock is held even when the account does not exist, until tx ends.
func (r *AccountRepo) GetByNumberForUpdate(ctx context.Context, tx pgx.Tx, accountNumber string) (*domain.Account, error) {
	mt, err := asTx(tx)
	if err != nil {
		return nil, err
	}
	if err := mt.lock(ctx, accountNumber); err != nil {
		return nil, err
	}

	a, err := r.GetByNumber(ctx, accountNumber)
	if err != nil || a == nil {
		return a, err
	}
	if _, deleted := mt.deletes[a.ID]; deleted {
		return nil, nil
	}
	if staged, ok := mt.updates[a.ID]; ok {
		return &staged, nil
	}
	return a, nil
}

func (r *AccountRepo) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	accounts := make([]domain.Account, 0)
	for _, a := range r.s.accounts {
		if a.OwnerID == ownerID {
			accounts = append(accounts, a)
		}
	}
	sort.Slice(accounts, func(i, j int) bool {
		if accounts[i].CreatedAt.Equal(accounts[j].CreatedAt) {
			return accounts[i].AccountNumber < accounts[j].AccountNumber
		}
		return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
	})
	return accounts, nil
}

func (r *AccountRepo) ExistsByNumber(_ context.Context, accountNumber string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.byNumber[accountNumber]
	return ok, nil
}

func (r *AccountRepo) UpdateBalance(_ context.Context, tx pgx.Tx, a *domain.Account) error {
	return r.stage(tx, a, func(staged *domain.Account) {
		staged.Balance = a.Balance
	})
}

func (r *AccountRepo) UpdateName(_ context.Context, tx pgx.Tx, a *domain.Account) error {
	return r.stage(tx, a, func(staged *domain.Account) {
		staged.Name = a.Name
	})
}

func (r *AccountRepo) stage(tx pgx.Tx, a *domain.Account, apply func(*domain.Account)) error {
	mt, err := asTx(tx)
	if err != nil {
		return err
	}
	if !mt.holds(a.AccountNumber) {
		return fmt.Errorf("update account %s: row is not locked by this transaction", a.AccountNumber)
	}

	staged, ok := mt.updates[a.ID]
	if !ok {
		current, err := r.GetByNumber(context.Background(), a.AccountNumber)
		if err != nil {
			return err
		}
		if current == nil {
			return fmt.Errorf("account not found: %s", a.ID)
		}
		staged = *current
	}
	apply(&staged)
	staged.Touch(a.UpdatedAt)
	mt.updates[a.ID] = staged
	return nil
}

// Delete stages removal of the account; its transactions go with it at commit.
func (r *AccountRepo) Delete(_ context.Context, tx pgx.Tx, accountID uuid.UUID) error {
	mt, err := asTx(tx)
	if err != nil {
		return err
	}

	r.s.mu.RLock()
	a, ok := r.s.accounts[accountID]
	r.s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("account not found: %s", accountID)
	}
	if !mt.holds(a.AccountNumber) {
		return fmt.Errorf("delete account %s: row is not locked by this transaction", a.AccountNumber)
	}

	mt.deletes[accountID] = struct{}{}
	delete(mt.updates, accountID)
	return nil
}

// deleteAccountLocked removes an account and cascades its transactions. s.mu must be held.
func (s *Store) deleteAccountLocked(id uuid.UUID) {
	a, ok := s.accounts[id]
	if !ok {
		return
	}
	for _, txnID := range s.byAccount[id] {
		delete(s.txns, txnID)
	}
	delete(s.byAccount, id)
	delete(s.byNumber, a.AccountNumber)
	delete(s.accounts, id)
}
