package memory

import (
	"context"
	"fmt"
	"strings"

	"eagle-ledger/internal/core/domain"
	"eagle-ledger/internal/core/ports"
	"eagle-ledger/pkg/apperror"

	"github.com/google/uuid"
)

// UserRepo implements ports.UserRepository.
type UserRepo struct {
	s *Store
}

// NewUserRepo creates a UserRepo over s.
func NewUserRepo(s *Store) *UserRepo {
	return &UserRepo{s: s}
}

func (r *UserRepo) Create(_ context.Context, u *domain.User) error {
	email := strings.ToLower(u.Email)

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, taken := r.s.byEmail[email]; taken {
		return fmt.Errorf("insert user: %w", ports.ErrDuplicateKey)
	}
	stored := *u
	stored.Email = email
	r.s.users[u.ID] = stored
	r.s.byEmail[email] = u.ID
	return nil
}

func (r *UserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	id, ok := r.s.byEmail[strings.ToLower(email)]
	r.s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

// Update replaces the stored profile, re-indexing the email.
func (r *UserRepo) Update(_ context.Context, u *domain.User) error {
	email := strings.ToLower(u.Email)

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.users[u.ID]
	if !ok {
		return fmt.Errorf("update user %s: not found", u.ID)
	}
	if owner, taken := r.s.byEmail[email]; taken && owner != u.ID {
		return fmt.Errorf("update user: %w", ports.ErrDuplicateKey)
	}
	delete(r.s.byEmail, current.Email)
	stored := *u
	stored.Email = email
	r.s.users[u.ID] = stored
	r.s.byEmail[email] = u.ID
	return nil
}

// Delete removes a user who owns no accounts.
func (r *UserRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil
	}
	for _, a := range r.s.accounts {
		if a.OwnerID == id {
			return apperror.ErrReferencedResource(fmt.Errorf("delete user %s: account %s still references it", id, a.AccountNumber))
		}
	}
	delete(r.s.users, id)
	delete(r.s.byEmail, u.Email)
	return nil
}

// AuditRepo implements ports.AuditRepository.
type AuditRepo struct {
	s *Store
}

// NewAuditRepo creates an AuditRepo over s.
func NewAuditRepo(s *Store) *AuditRepo {
	return &AuditRepo{s: s}
}

func (r *AuditRepo) Create(_ context.Context, log *domain.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.audit = append(r.s.audit, *log)
	return nil
}

// Entries returns a copy of the recorded audit log.
func (r *AuditRepo) Entries() []domain.AuditLog {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return append([]domain.AuditLog(nil), r.s.audit...)
}
