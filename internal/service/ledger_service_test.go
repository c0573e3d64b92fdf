package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"eagle-ledger/internal/core/domain"
	"eagle-ledger/internal/core/ports"
	"eagle-ledger/internal/core/ports/mocks"
	"eagle-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type ledgerTestDeps struct {
	svc         *LedgerServiceImpl
	accountRepo *mocks.MockAccountRepository
	txRepo      *mocks.MockTransactionRepository
	transactor  *mocks.MockDBTransactor
	ctrl        *gomock.Controller
}

func setupLedgerService(t *testing.T, ownedDestinations bool) *ledgerTestDeps {
	ctrl := gomock.NewController(t)
	d := &ledgerTestDeps{
		accountRepo: mocks.NewMockAccountRepository(ctrl),
		txRepo:      mocks.NewMockTransactionRepository(ctrl),
		transactor:  mocks.NewMockDBTransactor(ctrl),
		ctrl:        ctrl,
	}
	d.svc = NewLedgerService(d.accountRepo, d.txRepo, NewOwnershipGuard(), d.transactor, ownedDestinations, zerolog.Nop())
	return d
}

// mockTx implements pgx.Tx for testing
type mockTx struct {
	pgx.Tx
	committed bool
	commitErr error
}

func (m *mockTx) Rollback(_ context.Context) error { return nil }
func (m *mockTx) Commit(_ context.Context) error {
	if m.commitErr != nil {
		return m.commitErr
	}
	m.committed = true
	return nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testAccount(owner domain.Identity, number, balance string) *domain.Account {
	now := time.Now().UTC().Add(-time.Hour)
	return &domain.Account{
		ID:            uuid.New(),
		OwnerID:       owner.UserID,
		Name:          "Main",
		AccountNumber: number,
		SortCode:      "10-10-10",
		AccountType:   domain.AccountTypePersonal,
		Balance:       dec(balance),
		Currency:      "GBP",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func newCaller() domain.Identity {
	return domain.Identity{UserID: uuid.New(), Email: "owner@example.com"}
}

// ==================== ApplyCashMovement Tests ====================

func TestLedgerService_ApplyCashMovement_Deposit(t *testing.T) {
	d := setupLedgerService(t, false)
	ctx := context.Background()
	caller := newCaller()
	acct := testAccount(caller, "01100001", "10.00")
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.accountRepo.EXPECT().GetByNumberForUpdate(ctx, tx, "01100001").Return(acct, nil)
	d.accountRepo.EXPECT().UpdateBalance(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, a *domain.Account) error {
			assert.True(t, a.Balance.Equal(dec("110.50")))
			return nil
		})
	d.txRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)

	txn, err := d.svc.ApplyCashMovement(ctx, ports.CashMovementRequest{
		Caller: caller, AccountNumber: "01100001", Type: "deposit",
		Amount: dec("100.50"), Currency: "gbp", Reference: " salary ",
	})
	require.NoError(t, err)
	assert.True(t, tx.committed)
	assert.Equal(t, domain.TransactionTypeDeposit, txn.Type)
	assert.Equal(t, acct.ID, txn.AccountID)
	assert.Equal(t, "GBP", txn.Currency)
	assert.Equal(t, "salary", txn.Description)
	assert.True(t, txn.Amount.Equal(dec("100.50")))
}

func TestLedgerService_ApplyCashMovement_TrimsAccountNumber(t *testing.T) {
	d := setupLedgerService(t, false)
	ctx := context.Background()
	caller := newCaller()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.accountRepo.EXPECT().GetByNumberForUpdate(ctx, tx, "01100001").Return(testAccount(caller, "01100001", "0.00"), nil)
	d.accountRepo.EXPECT().UpdateBalance(ctx, tx, gomock.Any()).Return(nil)
	d.txRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)

	_, err := d.svc.ApplyCashMovement(ctx, ports.CashMovementRequest{
		Caller: caller, AccountNumber: " 01100001 ", Type: "DEPOSIT", Amount: dec("1.00"),
	})
	require.NoError(t, err)
	assert.True(t, tx.committed)
}

func TestLedgerService_ApplyCashMovement_BalanceLimit(t *testing.T) {
	d := setupLedgerService(t, false)
	ctx := context.Background()
	caller := newCaller()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.accountRepo.EXPECT().GetByNumberForUpdate(ctx, tx, "01100001").
		Return(testAccount(caller, "01100001", "99999999999999999.00"), nil)

	_, err := d.svc.ApplyCashMovement(ctx, ports.CashMovementRequest{
		Caller: caller, AccountNumber: "01100001", Type: "DEPOSIT", Amount: dec("1.00"),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindInvalidArgument))
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "LED_002", appErr.Code)
	assert.False(t, tx.committed)
}

func TestLedgerService_ApplyCashMovement_InsufficientFunds(t *testing.T) {
	d := setupLedgerService(t, false)
	ctx := context.Background()
	caller := newCaller()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.accountRepo.EXPECT().GetByNumberForUpdate(ctx, tx, "01100001").Return(testAccount(caller, "01100001", "70.00"), nil)
	// No UpdateBalance or Create expected.

	_, err := d.svc.ApplyCashMovement(ctx, ports.CashMovementRequest{
		Caller: caller, AccountNumber: "01100001", Type: "WITHDRAWAL", Amount: dec("1000.00"),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindInsufficientFunds))
	assert.False(t, tx.committed)
}

func TestLedgerService_ApplyCashMovement_ValidationBeforeStorage(t *testing.T) {
	d := setupLedgerService(t, false)
	caller := newCaller()

	tests := []struct {
		name   string
		txType string
		amount string
		code   string
	}{
		{"unknown type", "REFUND", "1.00", "LED_003"},
		{"transfer leg type", "DEBIT", "1.00", "LED_003"},
		{"zero amount", "DEPOSIT", "0", "LED_002"},
		{"negative amount", "WITHDRAWAL", "-5.00", "LED_002"},
		{"sub-penny amount", "DEPOSIT", "1.005", "LED_002"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.svc.ApplyCashMovement(context.Background(), ports.CashMovementRequest{
				Caller: caller, AccountNumber: "01100001", Type: tt.txType, Amount: dec(tt.amount),
			})
			var appErr *apperror.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, apperror.KindInvalidArgument, appErr.Kind)
			assert.Equal(t, tt.code, appErr.Code)
		})
	}
}

func TestLedgerService_ApplyCashMovement_NotFoundThenForbidden(t *testing.T) {
	d := setupLedgerService(t, false)
	ctx := context.Background()
	caller := newCaller()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil).Times(2)
	d.accountRepo.EXPECT().GetByNumberForUpdate(ctx, tx, "01999999").Return(nil, nil)
	d.accountRepo.EXPECT().GetByNumberForUpdate(ctx, tx, "01100002").Return(testAccount(newCaller(), "01100002", "5.00"), nil)

	_, err := d.svc.ApplyCashMovement(ctx, ports.CashMovementRequest{
		Caller: caller, AccountNumber: "01999999", Type: "DEPOSIT", Amount: dec("1"),
	})
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))

	_, err = d.svc.ApplyCashMovement(ctx, ports.CashMovementRequest{
		Caller: caller, AccountNumber: "01100002", Type: "DEPOSIT", Amount: dec("1"),
	})
	assert.True(t, apperror.IsKind(err, apperror.KindForbidden))
}

func TestLedgerService_ApplyCashMovement_CurrencyMismatch(t *testing.T) {
	d := setupLedgerService(t, false)
	ctx := context.Background()
	caller := newCaller()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.accountRepo.EXPECT().GetByNumberForUpdate(ctx, tx, "01100001").Return(testAccount(caller, "01100001", "5.00"), nil)

	_, err := d.svc.ApplyCashMovement(ctx, ports.CashMovementRequest{
		Caller: caller, AccountNumber: "01100001", Type: "DEPOSIT", Amount: dec("1"), Currency: "EUR",
	})
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "LED_008", appErr.Code)
}

func TestLedgerService_ApplyCashMovement_StorageUnavailablePropagates(t *testing.T) {
	d := setupLedgerService(t, false)
	ctx := context.Background()
	caller := newCaller()
	tx := &mockTx{}
	lockErr := apperror.ErrUnavailable(errors.New("lock timeout"))

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.accountRepo.EXPECT().GetByNumberForUpdate(ctx, tx, "01100001").Return(nil, lockErr)

	_, err := d.svc.ApplyCashMovement(ctx, ports.CashMovementRequest{
		Caller: caller, AccountNumber: "01100001", Type: "DEPOSIT", Amount: dec("1"),
	})
	assert.True(t, apperror.IsRetryable(err))
}

func TestLedgerService_ApplyCashMovement_CommitFailure(t *testing.T) {
	d := setupLedgerService(t, false)
	ctx := context.Background()
	caller := newCaller()
	tx := &mockTx{commitErr: errors.New("connection reset")}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.accountRepo.EXPECT().GetByNumberForUpdate(ctx, tx, "01100001").Return(testAccount(caller, "01100001", "5.00"), nil)
	d.accountRepo.EXPECT().UpdateBalance(ctx, tx, gomock.Any()).Return(nil)
	d.txRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)

	txn, err := d.svc.ApplyCashMovement(ctx, ports.CashMovementRequest{
		Caller: caller, AccountNumber: "01100001", Type: "DEPOSIT", Amount: dec("1"),
	})
	assert.Nil(t, txn)
	assert.True(t, apperror.IsKind(err, apperror.KindInternal))
}

// ==================== ApplyTransfer Tests ====================

func TestLedgerService_ApplyTransfer_LocksInAccountNumberOrder(t *testing.T) {
	d := setupLedgerService(t, false)
	ctx := context.Background()
	caller := newCaller()
	src := testAccount(caller, "01900000", "100.00")
	dst := testAccount(newCaller(), "01200000", "50.00")
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	gomock.InOrder(
		d.accountRepo.EXPECT().GetByNumberForUpdate(ctx, tx, "01200000").Return(dst, nil),
		d.accountRepo.EXPECT().GetByNumberForUpdate(ctx, tx, "01900000").Return(src, nil),
	)
	d.accountRepo.EXPECT().UpdateBalance(ctx, tx, gomock.Any()).Return(nil).Times(2)
	var legs []*domain.Transaction
	d.txRepo.EXPECT().Create(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, txn *domain.Transaction) error {
			legs = append(legs, txn)
			return nil
		}).Times(2)

	debit, err := d.svc.ApplyTransfer(ctx, ports.TransferRequest{
		Caller: caller, SourceAccountNumber: "01900000", DestinationAccountNumber: "01200000",
		Amount: dec("25.00"), Description: "rent",
	})
	require.NoError(t, err)
	require.Len(t, legs, 2)

	assert.Equal(t, debit, legs[0])
	assert.Equal(t, domain.TransactionTypeDebit, legs[0].Type)
	assert.Equal(t, src.ID, legs[0].AccountID)
	assert.Equal(t, "transfer to 01200000: rent", legs[0].Description)
	assert.Equal(t, domain.TransactionTypeCredit, legs[1].Type)
	assert.Equal(t, dst.ID, legs[1].AccountID)
	assert.Equal(t, "transfer from 01900000: rent", legs[1].Description)
	assert.Equal(t, legs[0].CreatedAt, legs[1].CreatedAt)

	assert.True(t, src.Balance.Equal(dec("75.00")))
	assert.True(t, dst.Balance.Equal(dec("75.00")))
	assert.True(t, tx.committed)
}

func TestLedgerService_ApplyTransfer_Rejections(t *testing.T) {
	caller := newCaller()

	t.Run("same account", func(t *testing.T) {
		d := setupLedgerService(t, false)
		_, err := d.svc.ApplyTransfer(context.Background(), ports.TransferRequest{
			Caller: caller, SourceAccountNumber: "01100001", DestinationAccountNumber: "01100001", Amount: dec("1"),
		})
		assert.True(t, apperror.IsKind(err, apperror.KindInvalidArgument))
	})

	t.Run("non-positive amount", func(t *testing.T) {
		d := setupLedgerService(t, false)
		_, err := d.svc.ApplyTransfer(context.Background(), ports.TransferRequest{
			Caller: caller, SourceAccountNumber: "01100001", DestinationAccountNumber: "01100002", Amount: dec("0"),
		})
		assert.True(t, apperror.IsKind(err, apperror.KindInvalidArgument))
	})

	cases := []struct {
		name     string
		src, dst *domain.Account
		owned    bool
		kind     apperror.Kind
	}{
		{"missing source", nil, testAccount(caller, "01100002", "0"), false, apperror.KindNotFound},
		{"foreign source", testAccount(newCaller(), "01100001", "10"), testAccount(caller, "01100002", "0"), false, apperror.KindForbidden},
		{"missing destination", testAccount(caller, "01100001", "10"), nil, false, apperror.KindNotFound},
		{"foreign destination under owned policy", testAccount(caller, "01100001", "10"), testAccount(newCaller(), "01100002", "0"), true, apperror.KindForbidden},
		{"insufficient funds", testAccount(caller, "01100001", "0.99"), testAccount(newCaller(), "01100002", "0"), false, apperror.KindInsufficientFunds},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := setupLedgerService(t, tc.owned)
			ctx := context.Background()
			tx := &mockTx{}
			d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
			d.accountRepo.EXPECT().GetByNumberForUpdate(ctx, tx, "01100001").Return(tc.src, nil)
			d.accountRepo.EXPECT().GetByNumberForUpdate(ctx, tx, "01100002").Return(tc.dst, nil)

			_, err := d.svc.ApplyTransfer(ctx, ports.TransferRequest{
				Caller: caller, SourceAccountNumber: "01100001", DestinationAccountNumber: "01100002", Amount: dec("1.00"),
			})
			assert.True(t, apperror.IsKind(err, tc.kind), "got %v", err)
			assert.False(t, tx.committed)
		})
	}
}

func TestLedgerService_ApplyTransfer_CurrencyMismatch(t *testing.T) {
	d := setupLedgerService(t, false)
	ctx := context.Background()
	caller := newCaller()
	src := testAccount(caller, "01100001", "10")
	dst := testAccount(newCaller(), "01100002", "0")
	dst.Currency = "EUR"
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.accountRepo.EXPECT().GetByNumberForUpdate(ctx, tx, "01100001").Return(src, nil)
	d.accountRepo.EXPECT().GetByNumberForUpdate(ctx, tx, "01100002").Return(dst, nil)

	_, err := d.svc.ApplyTransfer(ctx, ports.TransferRequest{
		Caller: caller, SourceAccountNumber: "01100001", DestinationAccountNumber: "01100002", Amount: dec("1"),
	})
	assert.True(t, apperror.IsKind(err, apperror.KindInvalidArgument))
}

// ==================== Read Path Tests ====================

func TestLedgerService_GetTransaction_ScopedToAccount(t *testing.T) {
	d := setupLedgerService(t, false)
	ctx := context.Background()
	caller := newCaller()
	acct := testAccount(caller, "01100001", "0")
	own := &domain.Transaction{ID: uuid.New(), AccountID: acct.ID}
	foreign := &domain.Transaction{ID: uuid.New(), AccountID: uuid.New()}

	d.accountRepo.EXPECT().GetByNumber(ctx, "01100001").Return(acct, nil).AnyTimes()
	d.txRepo.EXPECT().GetByID(ctx, own.ID).Return(own, nil)
	d.txRepo.EXPECT().GetByID(ctx, foreign.ID).Return(foreign, nil)
	missing := uuid.New()
	d.txRepo.EXPECT().GetByID(ctx, missing).Return(nil, nil)

	got, err := d.svc.GetTransaction(ctx, caller, "01100001", own.ID.String())
	require.NoError(t, err)
	assert.Equal(t, own, got)

	_, errForeign := d.svc.GetTransaction(ctx, caller, "01100001", foreign.ID.String())
	_, errMissing := d.svc.GetTransaction(ctx, caller, "01100001", missing.String())
	_, errMalformed := d.svc.GetTransaction(ctx, caller, "01100001", "not-a-uuid")
	assert.Equal(t, errMissing, errForeign)
	assert.Equal(t, errMissing, errMalformed)
	assert.True(t, apperror.IsKind(errForeign, apperror.KindNotFound))
}

func TestLedgerService_ListTransactions(t *testing.T) {
	d := setupLedgerService(t, false)
	ctx := context.Background()
	caller := newCaller()
	acct := testAccount(caller, "01100001", "0")

	d.accountRepo.EXPECT().GetByNumber(ctx, "01100001").Return(acct, nil)
	d.txRepo.EXPECT().ListByAccount(ctx, acct.ID).Return(nil, nil)

	txns, err := d.svc.ListTransactions(ctx, caller, "01100001")
	require.NoError(t, err)
	assert.NotNil(t, txns)
	assert.Empty(t, txns)

	d.accountRepo.EXPECT().GetByNumber(ctx, "01100001").Return(acct, nil)
	_, err = d.svc.ListTransactions(ctx, newCaller(), "01100001")
	assert.True(t, apperror.IsKind(err, apperror.KindForbidden))
}
