package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"eagle-ledger/internal/core/domain"
	"eagle-ledger/internal/core/ports"
	"eagle-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const maxAccountNameLen = 100

// AccountDefaults are the per-deployment values stamped on new accounts.
type AccountDefaults struct {
	SortCode       string
	Currency       string
	NumberAttempts int
}

// AccountServiceImpl implements ports.AccountService.
type AccountServiceImpl struct {
	accountRepo ports.AccountRepository
	guard       ports.OwnershipGuard
	transactor  ports.DBTransactor
	numbers     AccountNumberGenerator
	defaults    AccountDefaults
	log         zerolog.Logger
	now         func() time.Time
}

// NewAccountService creates a new AccountServiceImpl.
func NewAccountService(
	accountRepo ports.AccountRepository,
	guard ports.OwnershipGuard,
	transactor ports.DBTransactor,
	numbers AccountNumberGenerator,
	defaults AccountDefaults,
	log zerolog.Logger,
) *AccountServiceImpl {
	if defaults.NumberAttempts <= 0 {
		defaults.NumberAttempts = 1
	}
	return &AccountServiceImpl{
		accountRepo: accountRepo,
		guard:       guard,
		transactor:  transactor,
		numbers:     numbers,
		defaults:    defaults,
		log:         log,
		now:         utcNow,
	}
}

// Create opens a zero-balance account for the owner under a fresh account number.
func (s *AccountServiceImpl) Create(ctx context.Context, req ports.CreateAccountRequest) (*domain.Account, error) {
	if req.Owner.IsZero() {
		return nil, apperror.ErrInvalidToken()
	}
	name, err := normalizeAccountName(req.Name)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, apperror.Validation("name is required")
	}

	accountType := domain.AccountTypePersonal
	if strings.TrimSpace(req.AccountType) != "" {
		if accountType, err = domain.ParseAccountType(req.AccountType); err != nil {
			return nil, apperror.Validation(fmt.Sprintf("unsupported account type: %s", req.AccountType))
		}
	}

	now := s.now()
	account := &domain.Account{
		ID:          uuid.New(),
		OwnerID:     req.Owner.UserID,
		Name:        name,
		SortCode:    s.defaults.SortCode,
		AccountType: accountType,
		Balance:     decimal.Zero,
		Currency:    s.defaults.Currency,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	for attempt := 1; attempt <= s.defaults.NumberAttempts; attempt++ {
		number, err := s.numbers.Next()
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("generate account number: %w", err))
		}

		taken, err := s.accountRepo.ExistsByNumber(ctx, number)
		if err != nil {
			return nil, apperror.FromStorage("check account number", err)
		}
		if taken {
			s.log.Debug().Str("account_number", number).Int("attempt", attempt).Msg("account number collision")
			continue
		}

		account.AccountNumber = number
		err = s.accountRepo.Create(ctx, account)
		if errors.Is(err, ports.ErrDuplicateKey) {
			s.log.Debug().Str("account_number", number).Int("attempt", attempt).Msg("account number taken concurrently")
			continue
		}
		if err != nil {
			return nil, apperror.FromStorage("create account", err)
		}

		s.log.Info().
			Str("account_number", account.AccountNumber).
			Str("owner_id", account.OwnerID.String()).
			Msg("account created")
		return account, nil
	}

	return nil, apperror.ErrUnavailable(fmt.Errorf("no free account number after %d attempts", s.defaults.NumberAttempts))
}

// Get returns an account the caller owns.
func (s *AccountServiceImpl) Get(ctx context.Context, caller domain.Identity, accountNumber string) (*domain.Account, error) {
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

// List returns the caller's accounts, oldest first.
func (s *AccountServiceImpl) List(ctx context.Context, caller domain.Identity) ([]domain.Account, error) {
	if caller.IsZero() {
		return nil, apperror.ErrInvalidToken()
	}
	accounts, err := s.accountRepo.ListByOwner(ctx, caller.UserID)
	if err != nil {
		return nil, apperror.FromStorage("list accounts", err)
	}
	if accounts == nil {
		accounts = []domain.Account{}
	}
	return accounts, nil
}

// Rename changes the account name. A blank name leaves the account untouched.
func (s *AccountServiceImpl) Rename(ctx context.Context, caller domain.Identity, accountNumber, newName string) (*domain.Account, error) {
	name, err := normalizeAccountName(newName)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return s.Get(ctx, caller, accountNumber)
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.FromStorage("begin tx", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	account, err := s.lockOwned(ctx, dbTx, caller, accountNumber)
	if err != nil {
		return nil, err
	}

	account.Name = name
	account.Touch(s.now())
	if err := s.accountRepo.UpdateName(ctx, dbTx, account); err != nil {
		return nil, apperror.FromStorage("rename account", err)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.FromStorage("commit tx", err)
	}

	s.log.Info().Str("account_number", account.AccountNumber).Msg("account renamed")
	return account, nil
}

// Delete removes an account whose balance is exactly zero.
func (s *AccountServiceImpl) Delete(ctx context.Context, caller domain.Identity, accountNumber string) error {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.FromStorage("begin tx", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	account, err := s.lockOwned(ctx, dbTx, caller, accountNumber)
	if err != nil {
		return err
	}
	if !account.HasZeroBalance() {
		return apperror.ErrNonZeroBalance()
	}

	if err := s.accountRepo.Delete(ctx, dbTx, account.ID); err != nil {
		return apperror.FromStorage("delete account", err)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return apperror.FromStorage("commit tx", err)
	}

	s.log.Info().Str("account_number", account.AccountNumber).Msg("account deleted")
	return nil
}

func (s *AccountServiceImpl) lockOwned(ctx context.Context, dbTx pgx.Tx, caller domain.Identity, accountNumber string) (*domain.Account, error) {
	account, err := s.accountRepo.GetByNumberForUpdate(ctx, dbTx, strings.TrimSpace(accountNumber))
	if err != nil {
		return nil, apperror.FromStorage("lock account", err)
	}
	if account == nil {
		return nil, apperror.ErrNotFound("account")
	}
	if err := s.guard.Authorize(caller, account); err != nil {
		return nil, err
	}
	return account, nil
}

func normalizeAccountName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if len([]rune(name)) > maxAccountNameLen {
		return "", apperror.Validation(fmt.Sprintf("name must be at most %d characters", maxAccountNameLen))
	}
	return name, nil
}
