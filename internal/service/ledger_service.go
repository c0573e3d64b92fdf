package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"eagle-ledger/internal/core/domain"
	"eagle-ledger/internal/core/ports"
	"eagle-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LedgerServiceImpl implements ports.LedgerService. Every mutation runs in a
// single storage transaction that row-locks the accounts it touches.
type LedgerServiceImpl struct {
	accountRepo       ports.AccountRepository
	txRepo            ports.TransactionRepository
	guard             ports.OwnershipGuard
	transactor        ports.DBTransactor
	ownedDestinations bool
	log               zerolog.Logger
	now               func() time.Time
}

// NewLedgerService creates a new LedgerServiceImpl. With ownedDestinations
// set, transfers also require the caller to own the destination account.
func NewLedgerService(
	accountRepo ports.AccountRepository,
	txRepo ports.TransactionRepository,
	guard ports.OwnershipGuard,
	transactor ports.DBTransactor,
	ownedDestinations bool,
	log zerolog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		accountRepo:       accountRepo,
		txRepo:            txRepo,
		guard:             guard,
		transactor:        transactor,
		ownedDestinations: ownedDestinations,
		log:               log,
		now:               utcNow,
	}
}

// utcNow truncates to the precision Postgres timestamps keep.
func utcNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// ApplyCashMovement deposits into or withdraws from one account.
func (s *LedgerServiceImpl) ApplyCashMovement(ctx context.Context, req ports.CashMovementRequest) (*domain.Transaction, error) {
	txType, err := domain.ParseCashMovementType(req.Type)
	if err != nil {
		return nil, apperror.ErrInvalidTransactionType(req.Type)
	}
	if err := domain.ValidateAmount(req.Amount); err != nil {
		return nil, apperror.ErrInvalidAmount(err.Error())
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.FromStorage("begin tx", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	account, err := s.accountRepo.GetByNumberForUpdate(ctx, dbTx, strings.TrimSpace(req.AccountNumber))
	if err != nil {
		return nil, apperror.FromStorage("lock account", err)
	}
	if account == nil {
		return nil, apperror.ErrNotFound("account")
	}
	if err := s.guard.Authorize(req.Caller, account); err != nil {
		return nil, err
	}

	if strings.TrimSpace(req.Currency) != "" && !domain.SameCurrency(req.Currency, account.Currency) {
		return nil, apperror.ErrCurrencyMismatch()
	}

	if txType.IsInflow() {
		if !account.CanCredit(req.Amount) {
			return nil, apperror.ErrInvalidAmount(domain.ErrBalanceLimit.Error())
		}
		account.Balance = account.Balance.Add(req.Amount)
	} else {
		if !account.CanDebit(req.Amount) {
			return nil, apperror.ErrInsufficientFunds()
		}
		account.Balance = account.Balance.Sub(req.Amount)
	}

	now := s.now()
	account.Touch(now)

	txn := &domain.Transaction{
		ID:          uuid.New(),
		AccountID:   account.ID,
		Type:        txType,
		Amount:      req.Amount,
		Currency:    account.Currency,
		Description: strings.TrimSpace(req.Reference),
		CreatedAt:   now,
	}

	if err := s.accountRepo.UpdateBalance(ctx, dbTx, account); err != nil {
		return nil, apperror.FromStorage("update balance", err)
	}
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.FromStorage("create transaction", err)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.FromStorage("commit tx", err)
	}

	s.log.Info().
		Str("tx_id", txn.ID.String()).
		Str("account_number", account.AccountNumber).
		Str("type", string(txn.Type)).
		Str("amount", txn.Amount.StringFixed(domain.MinorUnits)).
		Msg("cash movement applied")

	return txn, nil
}

// ApplyTransfer moves funds between two accounts and returns the debit leg.
// Both rows are locked in ascending account-number order so opposing
// transfers cannot deadlock.
func (s *LedgerServiceImpl) ApplyTransfer(ctx context.Context, req ports.TransferRequest) (*domain.Transaction, error) {
	if err := domain.ValidateAmount(req.Amount); err != nil {
		return nil, apperror.ErrInvalidAmount(err.Error())
	}
	srcNumber := strings.TrimSpace(req.SourceAccountNumber)
	dstNumber := strings.TrimSpace(req.DestinationAccountNumber)
	if srcNumber == dstNumber {
		return nil, apperror.ErrSameAccountTransfer()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.FromStorage("begin tx", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	order := []string{srcNumber, dstNumber}
	sort.Strings(order)
	locked := make(map[string]*domain.Account, 2)
	for _, number := range order {
		account, err := s.accountRepo.GetByNumberForUpdate(ctx, dbTx, number)
		if err != nil {
			return nil, apperror.FromStorage("lock account", err)
		}
		locked[number] = account
	}

	source, dest := locked[srcNumber], locked[dstNumber]
	if source == nil {
		return nil, apperror.ErrNotFound("account")
	}
	if err := s.guard.Authorize(req.Caller, source); err != nil {
		return nil, err
	}
	if dest == nil {
		return nil, apperror.ErrNotFound("destination account")
	}
	if s.ownedDestinations {
		if err := s.guard.Authorize(req.Caller, dest); err != nil {
			return nil, err
		}
	}
	if !domain.SameCurrency(source.Currency, dest.Currency) {
		return nil, apperror.ErrCurrencyMismatch()
	}
	if !source.CanDebit(req.Amount) {
		return nil, apperror.ErrInsufficientFunds()
	}
	if !dest.CanCredit(req.Amount) {
		return nil, apperror.ErrInvalidAmount(domain.ErrBalanceLimit.Error())
	}

	now := s.now()
	source.Balance = source.Balance.Sub(req.Amount)
	source.Touch(now)
	dest.Balance = dest.Balance.Add(req.Amount)
	dest.Touch(now)

	debit := &domain.Transaction{
		ID:          uuid.New(),
		AccountID:   source.ID,
		Type:        domain.TransactionTypeDebit,
		Amount:      req.Amount,
		Currency:    source.Currency,
		Description: transferDescription("transfer to", dest.AccountNumber, req.Description),
		CreatedAt:   now,
	}
	credit := &domain.Transaction{
		ID:          uuid.New(),
		AccountID:   dest.ID,
		Type:        domain.TransactionTypeCredit,
		Amount:      req.Amount,
		Currency:    dest.Currency,
		Description: transferDescription("transfer from", source.AccountNumber, req.Description),
		CreatedAt:   now,
	}

	for _, a := range []*domain.Account{source, dest} {
		if err := s.accountRepo.UpdateBalance(ctx, dbTx, a); err != nil {
			return nil, apperror.FromStorage("update balance", err)
		}
	}
	for _, t := range []*domain.Transaction{debit, credit} {
		if err := s.txRepo.Create(ctx, dbTx, t); err != nil {
			return nil, apperror.FromStorage("create transaction", err)
		}
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.FromStorage("commit tx", err)
	}

	s.log.Info().
		Str("debit_tx_id", debit.ID.String()).
		Str("credit_tx_id", credit.ID.String()).
		Str("source", source.AccountNumber).
		Str("destination", dest.AccountNumber).
		Str("amount", req.Amount.StringFixed(domain.MinorUnits)).
		Msg("transfer applied")

	return debit, nil
}

func transferDescription(direction, counterparty, note string) string {
	desc := fmt.Sprintf("%s %s", direction, counterparty)
	if note = strings.TrimSpace(note); note != "" {
		desc += ": " + note
	}
	return desc
}

// ListTransactions returns the account's history, most recent first.
func (s *LedgerServiceImpl) ListTransactions(ctx context.Context, caller domain.Identity, accountNumber string) ([]domain.Transaction, error) {
	account, err := s.authorizedAccount(ctx, caller, accountNumber)
	if err != nil {
		return nil, err
	}

	txns, err := s.txRepo.ListByAccount(ctx, account.ID)
	if err != nil {
		return nil, apperror.FromStorage("list transactions", err)
	}
	if txns == nil {
		txns = []domain.Transaction{}
	}
	return txns, nil
}

// GetTransaction returns one transaction of the account. A transaction that
// exists on another account is reported exactly like a missing one.
func (s *LedgerServiceImpl) GetTransaction(ctx context.Context, caller domain.Identity, accountNumber, transactionID string) (*domain.Transaction, error) {
	account, err := s.authorizedAccount(ctx, caller, accountNumber)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(strings.TrimSpace(transactionID))
	if err != nil {
		return nil, apperror.ErrNotFound("transaction")
	}
	txn, err := s.txRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.FromStorage("get transaction", err)
	}
	if txn == nil || txn.AccountID != account.ID {
		return nil, apperror.ErrNotFound("transaction")
	}
	return txn, nil
}

// authorizedAccount loads an account without locking and checks ownership.
func (s *LedgerServiceImpl) authorizedAccount(ctx context.Context, caller domain.Identity, accountNumber string) (*domain.Account, error) {
	account, err := s.accountRepo.GetByNumber(ctx, strings.TrimSpace(accountNumber))
	if err != nil {
		return nil, apperror.FromStorage("get account", err)
	}
	if account == nil {
		return nil, apperror.ErrNotFound("account")
	}
	if err := s.guard.Authorize(caller, account); err != nil {
		return nil, err
	}
	return account, nil
}
