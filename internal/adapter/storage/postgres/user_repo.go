package postgres

import (
	"context"
	"errors"
	"strings"

	"eagle-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, name, email, password_hash, address, phone_number, created_at, updated_at`

// UserRepo implements ports.UserRepository.
type UserRepo struct {
	pool Pool
}

// NewUserRepo creates a new UserRepo.
func NewUserRepo(pool Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

// Create inserts a new user. A taken email surfaces as ports.ErrDuplicateKey.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	query := `INSERT INTO users (` + userColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		u.ID, u.Name, strings.ToLower(u.Email), u.PasswordHash,
		u.Address, u.PhoneNumber, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return classify("insert user", err)
	}
	return nil
}

// GetByID fetches a user by UUID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.getOne(ctx, "get user by id", `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByEmail fetches a user by email, ignoring case.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, "get user by email", `SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(email))
}

// Update rewrites the mutable profile fields. A taken email surfaces as
// ports.ErrDuplicateKey.
func (r *UserRepo) Update(ctx context.Context, u *domain.User) error {
	query := `UPDATE users
		SET name = $2, email = $3, password_hash = $4, address = $5, phone_number = $6, updated_at = $7
		WHERE id = $1`

	_, err := r.pool.Exec(ctx, query,
		u.ID, u.Name, strings.ToLower(u.Email), u.PasswordHash, u.Address, u.PhoneNumber, u.UpdatedAt,
	)
	if err != nil {
		return classify("update user", err)
	}
	return nil
}

// Delete removes a user. accounts.owner_id is ON DELETE RESTRICT, so a user
// who still owns accounts comes back as a Conflict.
func (r *UserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
		return classify("delete user", err)
	}
	return nil
}

func (r *UserRepo) getOne(ctx context.Context, op, query string, arg any) (*domain.User, error) {
	u := &domain.User{}
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash,
		&u.Address, &u.PhoneNumber, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, classify(op, err)
	}
	return u, nil
}
