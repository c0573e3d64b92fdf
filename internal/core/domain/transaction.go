package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType represents the kind of money movement.
type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal TransactionType = "WITHDRAWAL"
	TransactionTypeDebit      TransactionType = "DEBIT"
	TransactionTypeCredit     TransactionType = "CREDIT"
)

// ParseCashMovementType accepts DEPOSIT or WITHDRAWAL in any letter case.
// DEBIT and CREDIT are reserved for transfer legs and are rejected here.
func ParseCashMovementType(s string) (TransactionType, error) {
	switch t := TransactionType(strings.ToUpper(strings.TrimSpace(s))); t {
	case TransactionTypeDeposit, TransactionTypeWithdrawal:
		return t, nil
	default:
		return "", ErrUnknownTransactionType
	}
}

// IsInflow reports whether the type increases the account balance.
func (t TransactionType) IsInflow() bool {
	return t == TransactionTypeDeposit || t == TransactionTypeCredit
}

// Transaction is an immutable ledger entry against exactly one account.
type Transaction struct {
	ID          uuid.UUID       `json:"id"`
	AccountID   uuid.UUID       `json:"account_id"`
	Type        TransactionType `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// SignedAmount returns the amount as a balance delta.
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.Type.IsInflow() {
		return t.Amount
	}
	return t.Amount.Neg()
}
