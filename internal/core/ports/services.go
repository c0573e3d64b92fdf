package ports

//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

import (
	"context"
	"time"

	"eagle-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(user *domain.User) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	UserID uuid.UUID
	Email  string
}

// Identity converts verified claims into the caller identity.
func (c *TokenClaims) Identity() domain.Identity {
	return domain.Identity{UserID: c.UserID, Email: c.Email}
}

// IdempotencyCache stores completed HTTP responses keyed by Idempotency-Key.
type IdempotencyCache interface {
	// Reserve marks key as in progress. It returns false if the key is
	// already reserved or completed.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Get returns the stored response, or nil when the key is unknown or still in progress.
	Get(ctx context.Context, key string) (*domain.StoredResponse, error)
	Save(ctx context.Context, key string, resp *domain.StoredResponse, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

// RateLimitStore counts requests per key in fixed windows.
type RateLimitStore interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*RateLimitResult, error)
}

// RateLimitResult holds the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   int64 // Unix timestamp
}

// AuditService records audited actions without blocking the caller.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}

// --- Service Ports (Business Logic) ---

// OwnershipGuard decides whether a caller may act on an account.
type OwnershipGuard interface {
	Authorize(caller domain.Identity, account *domain.Account) error
}

// LedgerService applies balance-changing operations and serves the transaction log.
type LedgerService interface {
	ApplyCashMovement(ctx context.Context, req CashMovementRequest) (*domain.Transaction, error)
	ApplyTransfer(ctx context.Context, req TransferRequest) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, caller domain.Identity, accountNumber string) ([]domain.Transaction, error)
	GetTransaction(ctx context.Context, caller domain.Identity, accountNumber, transactionID string) (*domain.Transaction, error)
}

// CashMovementRequest holds input for a deposit or withdrawal.
type CashMovementRequest struct {
	Caller        domain.Identity
	AccountNumber string
	Type          string
	Amount        decimal.Decimal
	Currency      string // empty means the account currency
	Reference     string
}

// TransferRequest holds input for an inter-account transfer.
type TransferRequest struct {
	Caller                   domain.Identity
	SourceAccountNumber      string
	DestinationAccountNumber string
	Amount                   decimal.Decimal
	Description              string
}

// AccountService manages the account lifecycle.
type AccountService interface {
	Create(ctx context.Context, req CreateAccountRequest) (*domain.Account, error)
	Get(ctx context.Context, caller domain.Identity, accountNumber string) (*domain.Account, error)
	List(ctx context.Context, caller domain.Identity) ([]domain.Account, error)
	Rename(ctx context.Context, caller domain.Identity, accountNumber, newName string) (*domain.Account, error)
	Delete(ctx context.Context, caller domain.Identity, accountNumber string) error
}

// CreateAccountRequest holds input for opening an account.
type CreateAccountRequest struct {
	Owner       domain.Identity
	Name        string
	AccountType string
}

// AuthService defines authentication business logic.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*domain.User, error)
	Login(ctx context.Context, email, password string) (string, time.Time, error) // token, expiry, error
}

// UserService manages a registered user's own profile.
type UserService interface {
	Get(ctx context.Context, caller domain.Identity, userID string) (*domain.User, error)
	Update(ctx context.Context, req UpdateUserRequest) (*domain.User, error)
	Delete(ctx context.Context, caller domain.Identity, userID string) error
}

// UpdateUserRequest holds a partial profile update. Blank fields are left unchanged.
type UpdateUserRequest struct {
	Caller      domain.Identity
	UserID      string
	Name        string
	Email       string
	Password    string
	Address     string
	PhoneNumber string
}

// RegisterRequest holds input for user registration.
type RegisterRequest struct {
	Name        string
	Email       string
	Password    string
	Address     string
	PhoneNumber string
}
