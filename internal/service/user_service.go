package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"eagle-ledger/internal/core/domain"
	"eagle-ledger/internal/core/ports"
	"eagle-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// UserServiceImpl implements ports.UserService. Users may only read,
// change or remove their own record.
type UserServiceImpl struct {
	userRepo ports.UserRepository
	hashSvc  ports.HashService
	log      zerolog.Logger
	now      func() time.Time
}

// NewUserService creates a new UserServiceImpl.
func NewUserService(userRepo ports.UserRepository, hashSvc ports.HashService, log zerolog.Logger) *UserServiceImpl {
	return &UserServiceImpl{
		userRepo: userRepo,
		hashSvc:  hashSvc,
		log:      log,
		now:      utcNow,
	}
}

// Get returns the caller's own user record.
func (s *UserServiceImpl) Get(ctx context.Context, caller domain.Identity, userID string) (*domain.User, error) {
	id, err := uuid.Parse(strings.TrimSpace(userID))
	if err != nil {
		return nil, apperror.ErrNotFound("user")
	}
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.FromStorage("get user", err)
	}
	if user == nil {
		return nil, apperror.ErrNotFound("user")
	}
	if caller.IsZero() || caller.UserID != user.ID {
		return nil, apperror.ErrForbidden()
	}
	return user, nil
}

// Update applies the non-blank fields of req. A new email must be unused.
func (s *UserServiceImpl) Update(ctx context.Context, req ports.UpdateUserRequest) (*domain.User, error) {
	user, err := s.Get(ctx, req.Caller, req.UserID)
	if err != nil {
		return nil, err
	}

	changed := false
	if name := strings.TrimSpace(req.Name); name != "" && name != user.Name {
		user.Name = name
		changed = true
	}
	if email := strings.ToLower(strings.TrimSpace(req.Email)); email != "" && email != user.Email {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, apperror.Validation("email is invalid")
		}
		existing, err := s.userRepo.GetByEmail(ctx, email)
		if err != nil {
			return nil, apperror.FromStorage("check email", err)
		}
		if existing != nil {
			return nil, apperror.ErrEmailExists()
		}
		user.Email = email
		changed = true
	}
	if address := strings.TrimSpace(req.Address); address != "" && address != user.Address {
		user.Address = address
		changed = true
	}
	if phone := strings.TrimSpace(req.PhoneNumber); phone != "" && phone != user.PhoneNumber {
		user.PhoneNumber = phone
		changed = true
	}
	if req.Password != "" {
		if len(req.Password) < minPasswordLen {
			return nil, apperror.Validation(fmt.Sprintf("password must be at least %d characters", minPasswordLen))
		}
		hash, err := s.hashSvc.Hash(req.Password)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("hash password: %w", err))
		}
		user.PasswordHash = hash
		changed = true
	}
	if !changed {
		return user, nil
	}

	user.UpdatedAt = s.now()
	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, ports.ErrDuplicateKey) {
			return nil, apperror.ErrEmailExists()
		}
		return nil, apperror.FromStorage("update user", err)
	}

	s.log.Info().Str("user_id", user.ID.String()).Msg("user updated")
	return user, nil
}

// Delete removes the caller's user record. It fails with a Conflict while
// the user still owns accounts.
func (s *UserServiceImpl) Delete(ctx context.Context, caller domain.Identity, userID string) error {
	user, err := s.Get(ctx, caller, userID)
	if err != nil {
		return err
	}
	if err := s.userRepo.Delete(ctx, user.ID); err != nil {
		return apperror.FromStorage("delete user", err)
	}

	s.log.Info().Str("user_id", user.ID.String()).Msg("user deleted")
	return nil
}
