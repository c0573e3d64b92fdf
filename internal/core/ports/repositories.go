package ports

//go:generate mockgen -source=repositories.go -destination=mocks/mock_repositories.go -package=mocks

import (
	"context"
	"errors"

	"eagle-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrDuplicateKey is returned by Create when a unique key (account number,
// user email) is already taken.
var ErrDuplicateKey = errors.New("duplicate key")

// AccountRepository defines persistence operations for accounts.
// Methods accepting pgx.Tx run inside a transaction block; the ForUpdate
// lookup holds a row lock until that transaction ends.
// Lookups return nil, nil when the account does not exist.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByNumber(ctx context.Context, accountNumber string) (*domain.Account, error)
	GetByNumberForUpdate(ctx context.Context, tx pgx.Tx, accountNumber string) (*domain.Account, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Account, error)
	ExistsByNumber(ctx context.Context, accountNumber string) (bool, error)
	UpdateBalance(ctx context.Context, tx pgx.Tx, account *domain.Account) error
	UpdateName(ctx context.Context, tx pgx.Tx, account *domain.Account) error
	Delete(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) error
}

// TransactionRepository defines persistence operations for ledger entries.
// There is deliberately no update or delete.
type TransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, transaction *domain.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	// ListByAccount returns entries newest first.
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Transaction, error)
}

// UserRepository defines persistence operations for users.
// Delete fails with a Conflict while the user still owns accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// AuditRepository persists audit entries.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
