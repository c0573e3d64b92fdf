package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers that branch on failure reason
// rather than on a specific code.
type Kind string

const (
	KindNotFound           Kind = "NOT_FOUND"
	KindForbidden          Kind = "FORBIDDEN"
	KindInvalidArgument    Kind = "INVALID_ARGUMENT"
	KindInsufficientFunds  Kind = "INSUFFICIENT_FUNDS"
	KindPreconditionFailed Kind = "PRECONDITION_FAILED"
	KindConflict           Kind = "CONFLICT"
	KindUnauthorized       Kind = "UNAUTHORIZED"
	KindRateLimited        Kind = "RATE_LIMITED"
	KindUnavailable        Kind = "UNAVAILABLE"
	KindInternal           Kind = "INTERNAL"
)

// HTTPStatus is the status code a kind maps to at the HTTP boundary.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindInvalidArgument, KindPreconditionFailed:
		return http.StatusBadRequest
	case KindInsufficientFunds:
		return http.StatusUnprocessableEntity
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Kind       Kind   `json:"-"`
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(kind Kind, code string, message string) *AppError {
	return &AppError{
		Kind:       kind,
		Code:       code,
		Message:    message,
		HTTPStatus: kind.HTTPStatus(),
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(kind Kind, code string, message string, err error) *AppError {
	e := New(kind, code, message)
	e.Err = err
	return e
}

// KindOf returns the kind of the first AppError in err's chain,
// or KindInternal when there is none.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsRetryable reports whether the operation failed transiently and may be retried as is.
func IsRetryable(err error) bool {
	return IsKind(err, KindUnavailable)
}

// ---- Ledger (LED) ----

func ErrInsufficientFunds() *AppError {
	return New(KindInsufficientFunds, "LED_001", "Insufficient funds to process transaction")
}

func ErrInvalidAmount(reason string) *AppError {
	return New(KindInvalidArgument, "LED_002", "Invalid amount: "+reason)
}

func ErrInvalidTransactionType(value string) *AppError {
	return New(KindInvalidArgument, "LED_003", fmt.Sprintf("Invalid transaction type %q", value))
}

func ErrNotFound(entity string) *AppError {
	return New(KindNotFound, "LED_004", fmt.Sprintf("%s not found", entity))
}

func ErrForbidden() *AppError {
	return New(KindForbidden, "LED_005", "Caller is not allowed to access this resource")
}

func ErrNonZeroBalance() *AppError {
	return New(KindPreconditionFailed, "LED_006", "Account balance must be zero before deletion")
}

func ErrReferencedResource(err error) *AppError {
	return Wrap(KindConflict, "LED_007", "Resource is referenced by other records", err)
}

func ErrCurrencyMismatch() *AppError {
	return New(KindInvalidArgument, "LED_008", "Currency does not match the account currency")
}

func ErrSameAccountTransfer() *AppError {
	return New(KindInvalidArgument, "LED_009", "Source and destination accounts must differ")
}

// ---- Authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New(KindUnauthorized, "AUTH_001", "Invalid credentials")
}

func ErrEmailExists() *AppError {
	return New(KindConflict, "AUTH_002", "Email already registered")
}

func ErrInvalidToken() *AppError {
	return New(KindUnauthorized, "AUTH_003", "Invalid or expired token")
}

// ---- Idempotency (IDEM) ----

func ErrRequestInProgress() *AppError {
	return New(KindConflict, "IDEM_001", "A request with this idempotency key is already in progress")
}

// ErrIdempotencyKeyReused rejects a key replayed with a different request body.
func ErrIdempotencyKeyReused() *AppError {
	e := New(KindConflict, "IDEM_002", "Idempotency key was already used with a different request")
	e.HTTPStatus = http.StatusUnprocessableEntity
	return e
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New(KindRateLimited, "RATE_001", "Rate limit exceeded")
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap(KindInternal, "SYS_001", "Internal server error", err)
}

// ErrUnavailable marks a transient storage failure; the request is safe to retry.
func ErrUnavailable(err error) *AppError {
	return Wrap(KindUnavailable, "SYS_002", "Service temporarily unavailable, retry the request", err)
}

// Validation returns a VAL_001 validation error.
func Validation(message string) *AppError {
	return New(KindInvalidArgument, "VAL_001", message)
}

// ErrPayloadTooLarge rejects a request body over the configured limit.
func ErrPayloadTooLarge() *AppError {
	e := New(KindInvalidArgument, "VAL_002", "Request body too large")
	e.HTTPStatus = http.StatusRequestEntityTooLarge
	return e
}

// FromStorage passes AppErrors through unchanged and wraps anything else
// as an internal error with op as context.
func FromStorage(op string, err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return InternalError(fmt.Errorf("%s: %w", op, err))
}
