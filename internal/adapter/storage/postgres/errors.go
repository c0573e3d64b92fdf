package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"

	"eagle-ledger/internal/core/ports"
	"eagle-ledger/pkg/apperror"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the adapter reacts to.
const (
	codeNumericOutOfRange   = "22003"
	codeForeignKeyViolation = "23503"
	codeUniqueViolation     = "23505"
	codeCheckViolation      = "23514"
	codeSerialization       = "40001"
	codeDeadlock            = "40P01"
	codeLockNotAvailable    = "55P03"
	codeQueryCanceled       = "57014"
	codeAdminShutdown       = "57P01"
	codeTooManyConnections  = "53300"
)

// constraintBalanceNonNegative is the CHECK that backs the no-negative-balance rule.
const constraintBalanceNonNegative = "accounts_balance_non_negative"

// classify converts driver errors into the ledger's error kinds.
// Unrecognised errors are returned wrapped with op and stay internal.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	wrapped := fmt.Errorf("%s: %w", op, err)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%s: %w", op, errors.Join(ports.ErrDuplicateKey, err))
		case codeForeignKeyViolation:
			return apperror.ErrReferencedResource(wrapped)
		case codeNumericOutOfRange:
			e := apperror.ErrInvalidAmount("value is out of range")
			e.Err = wrapped
			return e
		case codeCheckViolation:
			if pgErr.ConstraintName == constraintBalanceNonNegative {
				e := apperror.ErrInsufficientFunds()
				e.Err = wrapped
				return e
			}
		case codeSerialization, codeDeadlock, codeLockNotAvailable,
			codeQueryCanceled, codeAdminShutdown, codeTooManyConnections:
			return apperror.ErrUnavailable(wrapped)
		}
		if len(pgErr.Code) == 5 && pgErr.Code[:2] == "08" {
			return apperror.ErrUnavailable(wrapped)
		}
		return wrapped
	}

	if isTransient(err) {
		return apperror.ErrUnavailable(wrapped)
	}
	return wrapped
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
