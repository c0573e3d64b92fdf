package dto

import (
	"time"

	"eagle-ledger/internal/core/domain"

	"github.com/shopspring/decimal"
)

// RegisterRequest is the request body for user registration.
type RegisterRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=100"`
	Email       string `json:"email" binding:"required,email,max=254" sanitize:"-"`
	Password    string `json:"password" binding:"required,min=8,max=128" sanitize:"-"`
	Address     string `json:"address,omitempty" binding:"max=255"`
	PhoneNumber string `json:"phone_number,omitempty" binding:"omitempty,phone"`
}

// UpdateUserRequest is the request body for a partial profile update.
// Omitted or blank fields are left unchanged.
type UpdateUserRequest struct {
	Name        string `json:"name,omitempty" binding:"max=100"`
	Email       string `json:"email,omitempty" binding:"omitempty,email,max=254" sanitize:"-"`
	Password    string `json:"password,omitempty" binding:"omitempty,min=8,max=128" sanitize:"-"`
	Address     string `json:"address,omitempty" binding:"max=255"`
	PhoneNumber string `json:"phone_number,omitempty" binding:"omitempty,phone"`
}

// LoginRequest is the request body for token issuance.
type LoginRequest struct {
	Email    string `json:"email" binding:"required" sanitize:"-"`
	Password string `json:"password" binding:"required" sanitize:"-"`
}

// UserResponse is the public view of a registered user.
type UserResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Address     string `json:"address,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	Expiry    int64  `json:"expiry"` // Unix timestamp
}

// CreateAccountRequest is the request body for opening an account.
type CreateAccountRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	AccountType string `json:"account_type" binding:"omitempty,max=20"`
}

// UpdateAccountRequest is the request body for renaming an account.
// A blank name leaves the account unchanged.
type UpdateAccountRequest struct {
	Name string `json:"name" binding:"max=100"`
}

// AccountResponse is the public view of an account.
type AccountResponse struct {
	AccountNumber string `json:"account_number"`
	SortCode      string `json:"sort_code"`
	Name          string `json:"name"`
	AccountType   string `json:"account_type"`
	Balance       string `json:"balance"`
	Currency      string `json:"currency"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

// AccountListResponse wraps the caller's accounts.
type AccountListResponse struct {
	Accounts []AccountResponse `json:"accounts"`
}

// CreateTransactionRequest is the request body for a deposit or withdrawal.
// Amount accepts a JSON number or a decimal string.
type CreateTransactionRequest struct {
	Type      string           `json:"type" binding:"required"`
	Amount    *decimal.Decimal `json:"amount" binding:"required"`
	Currency  string           `json:"currency" binding:"omitempty,currency_code"`
	Reference string           `json:"reference" binding:"max=255"`
}

// TransferRequest is the request body for an inter-account transfer.
type TransferRequest struct {
	DestinationAccountNumber string           `json:"destination_account_number" binding:"required,account_number"`
	Amount                   *decimal.Decimal `json:"amount" binding:"required"`
	Description              string           `json:"description" binding:"max=255"`
}

// TransactionResponse is the public view of a ledger entry.
type TransactionResponse struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// TransactionListResponse wraps an account's history, most recent first.
type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	Total        int                   `json:"total"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// NewUserResponse converts a domain user.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:          u.ID.String(),
		Name:        u.Name,
		Email:       u.Email,
		Address:     u.Address,
		PhoneNumber: u.PhoneNumber,
		CreatedAt:   formatTime(u.CreatedAt),
	}
}

// NewAccountResponse converts a domain account. Balances always carry two decimals.
func NewAccountResponse(a *domain.Account) AccountResponse {
	return AccountResponse{
		AccountNumber: a.AccountNumber,
		SortCode:      a.SortCode,
		Name:          a.Name,
		AccountType:   string(a.AccountType),
		Balance:       a.Balance.StringFixed(domain.MinorUnits),
		Currency:      a.Currency,
		CreatedAt:     formatTime(a.CreatedAt),
		UpdatedAt:     formatTime(a.UpdatedAt),
	}
}

// NewAccountListResponse converts a slice of accounts.
func NewAccountListResponse(accounts []domain.Account) AccountListResponse {
	items := make([]AccountResponse, 0, len(accounts))
	for i := range accounts {
		items = append(items, NewAccountResponse(&accounts[i]))
	}
	return AccountListResponse{Accounts: items}
}

// NewTransactionResponse converts a domain transaction.
func NewTransactionResponse(t *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:          t.ID.String(),
		Type:        string(t.Type),
		Amount:      t.Amount.StringFixed(domain.MinorUnits),
		Currency:    t.Currency,
		Description: t.Description,
		CreatedAt:   formatTime(t.CreatedAt),
	}
}

// NewTransactionListResponse converts a transaction history, keeping its order.
func NewTransactionListResponse(txns []domain.Transaction) TransactionListResponse {
	items := make([]TransactionResponse, 0, len(txns))
	for i := range txns {
		items = append(items, NewTransactionResponse(&txns[i]))
	}
	return TransactionListResponse{Transactions: items, Total: len(items)}
}
