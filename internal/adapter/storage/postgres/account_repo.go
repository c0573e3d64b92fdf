package postgres

import (
	"context"
	"errors"
	"fmt"

	"eagle-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const accountColumns = `id, owner_id, name, account_number, sort_code, account_type, balance, currency, created_at, updated_at`

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct {
	pool Pool
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(pool Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

// Create inserts a new account. A taken account number surfaces as ports.ErrDuplicateKey.
func (r *AccountRepo) Create(ctx context.Context, a *domain.Account) error {
	query := `INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, query,
		a.ID, a.OwnerID, a.Name, a.AccountNumber, a.SortCode,
		a.AccountType, a.Balance, a.Currency, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return classify("insert account", err)
	}
	return nil
}

// GetByNumber fetches an account by account number (non-locking read).
func (r *AccountRepo) GetByNumber(ctx context.Context, accountNumber string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_number = $1`

	a, err := scanAccount(r.pool.QueryRow(ctx, query, accountNumber))
	if err != nil {
		return nil, classify("get account by number", err)
	}
	return a, nil
}

// GetByNumberForUpdate fetches an account and locks its row until tx ends.
// This MUST be called within a transaction.
func (r *AccountRepo) GetByNumberForUpdate(ctx context.Context, tx pgx.Tx, accountNumber string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_number = $1 FOR UPDATE`

	a, err := scanAccount(tx.QueryRow(ctx, query, accountNumber))
	if err != nil {
		return nil, classify("get account for update", err)
	}
	return a, nil
}

// ListByOwner returns the owner's accounts, oldest first.
func (r *AccountRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE owner_id = $1 ORDER BY created_at, account_number`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, classify("list accounts", err)
	}
	defer rows.Close()

	accounts := make([]domain.Account, 0)
	for rows.Next() {
		var a domain.Account
		if err := rows.Scan(
			&a.ID, &a.OwnerID, &a.Name, &a.AccountNumber, &a.SortCode,
			&a.AccountType, &a.Balance, &a.Currency, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate accounts", err)
	}
	return accounts, nil
}

// ExistsByNumber reports whether an account number is taken.
func (r *AccountRepo) ExistsByNumber(ctx context.Context, accountNumber string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM accounts WHERE account_number = $1)`, accountNumber,
	).Scan(&exists)
	if err != nil {
		return false, classify("check account number", err)
	}
	return exists, nil
}

// UpdateBalance writes the balance and advances updated_at within a transaction.
func (r *AccountRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, a *domain.Account) error {
	query := `UPDATE accounts SET balance = $1, updated_at = GREATEST(updated_at, $2) WHERE id = $3`

	tag, err := tx.Exec(ctx, query, a.Balance, a.UpdatedAt, a.ID)
	if err != nil {
		return classify("update account balance", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account not found: %s", a.ID)
	}
	return nil
}

// UpdateName writes the account name and advances updated_at within a transaction.
func (r *AccountRepo) UpdateName(ctx context.Context, tx pgx.Tx, a *domain.Account) error {
	query := `UPDATE accounts SET name = $1, updated_at = GREATEST(updated_at, $2) WHERE id = $3`

	tag, err := tx.Exec(ctx, query, a.Name, a.UpdatedAt, a.ID)
	if err != nil {
		return classify("update account name", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account not found: %s", a.ID)
	}
	return nil
}

// Delete removes the account row. Its transactions go with it (ON DELETE CASCADE);
// any other referencing row blocks the delete and surfaces as a Conflict.
func (r *AccountRepo) Delete(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) error {
	tag, err := tx.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, accountID)
	if err != nil {
		return classify("delete account", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account not found: %s", accountID)
	}
	return nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	a := &domain.Account{}
	err := row.Scan(
		&a.ID, &a.OwnerID, &a.Name, &a.AccountNumber, &a.SortCode,
		&a.AccountType, &a.Balance, &a.Currency, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}
