package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountType enumerates the kinds of account the ledger can hold.
type AccountType string

const (
	AccountTypePersonal AccountType = "PERSONAL"
)

// ParseAccountType matches s case-insensitively against the known account types.
func ParseAccountType(s string) (AccountType, error) {
	switch AccountType(strings.ToUpper(strings.TrimSpace(s))) {
	case AccountTypePersonal:
		return AccountTypePersonal, nil
	default:
		return "", ErrUnknownAccountType
	}
}

// Account is a single-currency balance owned by exactly one user.
type Account struct {
	ID            uuid.UUID       `json:"id"`
	OwnerID       uuid.UUID       `json:"owner_id"`
	Name          string          `json:"name"`
	AccountNumber string          `json:"account_number"`
	SortCode      string          `json:"sort_code"`
	AccountType   AccountType     `json:"account_type"`
	Balance       decimal.Decimal `json:"balance"`
	Currency      string          `json:"currency"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// IsOwnedBy reports whether id is the account's owner.
func (a *Account) IsOwnedBy(id Identity) bool {
	return id.UserID != uuid.Nil && a.OwnerID == id.UserID
}

// CanDebit reports whether the balance covers amount without going negative.
func (a *Account) CanDebit(amount decimal.Decimal) bool {
	return a.Balance.GreaterThanOrEqual(amount)
}

// CanCredit reports whether adding amount keeps the balance within MaxBalance.
func (a *Account) CanCredit(amount decimal.Decimal) bool {
	return a.Balance.Add(amount).LessThanOrEqual(MaxBalance)
}

// HasZeroBalance compares the balance against zero exactly.
func (a *Account) HasZeroBalance() bool {
	return a.Balance.IsZero()
}

// Touch advances UpdatedAt to now, never moving it backwards.
func (a *Account) Touch(now time.Time) {
	if now.After(a.UpdatedAt) {
		a.UpdatedAt = now
	}
}
