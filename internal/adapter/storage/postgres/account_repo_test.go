package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"eagle-ledger/internal/core/domain"
	"eagle-ledger/internal/core/ports"
	"eagle-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAccount() *domain.Account {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Account{
		ID:            uuid.New(),
		OwnerID:       uuid.New(),
		Name:          "Everyday",
		AccountNumber: "01234567",
		SortCode:      "10-10-10",
		AccountType:   domain.AccountTypePersonal,
		Balance:       decimal.RequireFromString("100.00"),
		Currency:      "GBP",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func accountColumnNames() []string {
	return []string{"id", "owner_id", "name", "account_number", "sort_code", "account_type", "balance", "currency", "created_at", "updated_at"}
}

func accountRow(a *domain.Account) *pgxmock.Rows {
	return pgxmock.NewRows(accountColumnNames()).AddRow(
		a.ID, a.OwnerID, a.Name, a.AccountNumber, a.SortCode,
		a.AccountType, a.Balance, a.Currency, a.CreatedAt, a.UpdatedAt,
	)
}

func TestAccountRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount()

	mock.ExpectExec("INSERT INTO accounts").
		WithArgs(a.ID, a.OwnerID, a.Name, a.AccountNumber, a.SortCode,
			a.AccountType, a.Balance, a.Currency, a.CreatedAt, a.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Create(context.Background(), a)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_Create_DuplicateNumber(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount()

	mock.ExpectExec("INSERT INTO accounts").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "accounts_account_number_key"})

	err = repo.Create(context.Background(), a)
	assert.ErrorIs(t, err, ports.ErrDuplicateKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_GetByNumber(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount()

	mock.ExpectQuery("SELECT .+ FROM accounts WHERE account_number").
		WithArgs(a.AccountNumber).
		WillReturnRows(accountRow(a))

	result, err := repo.GetByNumber(context.Background(), a.AccountNumber)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, a.ID, result.ID)
	assert.True(t, a.Balance.Equal(result.Balance))
	assert.Equal(t, domain.AccountTypePersonal, result.AccountType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_GetByNumber_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM accounts WHERE account_number").
		WithArgs("01999999").
		WillReturnRows(pgxmock.NewRows(accountColumnNames()))

	result, err := repo.GetByNumber(context.Background(), "01999999")
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_GetByNumberForUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM accounts WHERE account_number .+ FOR UPDATE").
		WithArgs(a.AccountNumber).
		WillReturnRows(accountRow(a))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.GetByNumberForUpdate(context.Background(), tx, a.AccountNumber)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, a.ID, result.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_GetByNumberForUpdate_LockTimeout(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FOR UPDATE").
		WithArgs("01234567").
		WillReturnError(&pgconn.PgError{Code: "55P03", Message: "canceling statement due to lock timeout"})

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	_, err = repo.GetByNumberForUpdate(context.Background(), tx, "01234567")
	assert.True(t, apperror.IsRetryable(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_ListByOwner(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount()
	b := newTestAccount()
	b.OwnerID = a.OwnerID
	b.AccountNumber = "01765432"

	rows := pgxmock.NewRows(accountColumnNames()).
		AddRow(a.ID, a.OwnerID, a.Name, a.AccountNumber, a.SortCode, a.AccountType, a.Balance, a.Currency, a.CreatedAt, a.UpdatedAt).
		AddRow(b.ID, b.OwnerID, b.Name, b.AccountNumber, b.SortCode, b.AccountType, b.Balance, b.Currency, b.CreatedAt, b.UpdatedAt)

	mock.ExpectQuery("SELECT .+ FROM accounts WHERE owner_id").
		WithArgs(a.OwnerID).
		WillReturnRows(rows)

	result, err := repo.ListByOwner(context.Background(), a.OwnerID)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "01234567", result[0].AccountNumber)
	assert.Equal(t, "01765432", result[1].AccountNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_ExistsByNumber(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("01234567").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsByNumber(context.Background(), "01234567")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_UpdateBalance(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE accounts SET balance").
		WithArgs(a.Balance, a.UpdatedAt, a.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.UpdateBalance(context.Background(), tx, a)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_UpdateBalance_CheckViolation(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE accounts SET balance").
		WillReturnError(&pgconn.PgError{Code: "23514", ConstraintName: "accounts_balance_non_negative"})

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.UpdateBalance(context.Background(), tx, a)
	assert.True(t, apperror.IsKind(err, apperror.KindInsufficientFunds))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_UpdateBalance_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE accounts SET balance").
		WithArgs(a.Balance, a.UpdatedAt, a.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.UpdateBalance(context.Background(), tx, a)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "account not found")
}

func TestAccountRepo_UpdateName(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount()
	a.Name = "Holiday fund"

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE accounts SET name").
		WithArgs("Holiday fund", a.UpdatedAt, a.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	assert.NoError(t, repo.UpdateName(context.Background(), tx, a))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_Delete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM accounts").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	assert.NoError(t, repo.Delete(context.Background(), tx, id))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_Delete_ForeignKeyViolation(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM accounts").
		WithArgs(id).
		WillReturnError(&pgconn.PgError{Code: "23503"})

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Delete(context.Background(), tx, id)
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperror.KindConflict, appErr.Kind)
	assert.Equal(t, "LED_007", appErr.Code)
}
