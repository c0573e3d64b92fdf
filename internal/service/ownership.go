package service

import (
	"eagle-ledger/internal/core/domain"
	"eagle-ledger/pkg/apperror"
)

// OwnershipGuard implements ports.OwnershipGuard. An account may be acted on
// only by the user who owns it.
type OwnershipGuard struct{}

// NewOwnershipGuard creates an OwnershipGuard.
func NewOwnershipGuard() *OwnershipGuard {
	return &OwnershipGuard{}
}

// Authorize returns a Forbidden error unless caller owns account.
// It never reveals anything about the account beyond the refusal.
func (g *OwnershipGuard) Authorize(caller domain.Identity, account *domain.Account) error {
	if account == nil || caller.IsZero() || !account.IsOwnedBy(caller) {
		return apperror.ErrForbidden()
	}
	return nil
}
