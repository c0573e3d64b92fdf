package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"eagle-ledger/internal/core/domain"
	"eagle-ledger/internal/core/ports"
	"eagle-ledger/internal/core/ports/mocks"
	"eagle-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type userTestDeps struct {
	svc      *UserServiceImpl
	userRepo *mocks.MockUserRepository
	hashSvc  *mocks.MockHashService
}

func setupUserService(t *testing.T) *userTestDeps {
	ctrl := gomock.NewController(t)
	d := &userTestDeps{
		userRepo: mocks.NewMockUserRepository(ctrl),
		hashSvc:  mocks.NewMockHashService(ctrl),
	}
	d.svc = NewUserService(d.userRepo, d.hashSvc, zerolog.Nop())
	d.svc.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return d
}

func testUser() *domain.User {
	created := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	return &domain.User{
		ID:           uuid.New(),
		Name:         "Ada",
		Email:        "ada@example.com",
		PasswordHash: "$argon2id$old",
		CreatedAt:    created,
		UpdatedAt:    created,
	}
}

func TestUserService_Get(t *testing.T) {
	d := setupUserService(t)
	ctx := context.Background()
	user := testUser()

	d.userRepo.EXPECT().GetByID(ctx, user.ID).Return(user, nil)

	got, err := d.svc.Get(ctx, user.Identity(), user.ID.String())
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func TestUserService_Get_NotFoundThenForbidden(t *testing.T) {
	d := setupUserService(t)
	ctx := context.Background()
	user := testUser()
	missing := uuid.New()

	d.userRepo.EXPECT().GetByID(ctx, missing).Return(nil, nil)
	d.userRepo.EXPECT().GetByID(ctx, user.ID).Return(user, nil)

	_, err := d.svc.Get(ctx, user.Identity(), missing.String())
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))

	_, err = d.svc.Get(ctx, newCaller(), user.ID.String())
	assert.True(t, apperror.IsKind(err, apperror.KindForbidden))

	_, err = d.svc.Get(ctx, user.Identity(), "not-a-uuid")
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}

func TestUserService_Update_AppliesNonBlankFields(t *testing.T) {
	d := setupUserService(t)
	ctx := context.Background()
	user := testUser()

	d.userRepo.EXPECT().GetByID(ctx, user.ID).Return(user, nil)
	d.userRepo.EXPECT().GetByEmail(ctx, "ada.l@example.com").Return(nil, nil)
	d.hashSvc.EXPECT().Hash("NewStrongPass1").Return("$argon2id$new", nil)
	d.userRepo.EXPECT().Update(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, u *domain.User) error {
		assert.Equal(t, "Ada", u.Name)
		assert.Equal(t, "ada.l@example.com", u.Email)
		assert.Equal(t, "1 Bank Street", u.Address)
		assert.Equal(t, "$argon2id$new", u.PasswordHash)
		return nil
	})

	got, err := d.svc.Update(ctx, ports.UpdateUserRequest{
		Caller:   user.Identity(),
		UserID:   user.ID.String(),
		Name:     "  ",
		Email:    " Ada.L@Example.com ",
		Address:  "1 Bank Street",
		Password: "NewStrongPass1",
	})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), got.UpdatedAt)
}

func TestUserService_Update_NothingToChange(t *testing.T) {
	d := setupUserService(t)
	ctx := context.Background()
	user := testUser()

	d.userRepo.EXPECT().GetByID(ctx, user.ID).Return(user, nil)
	// No Update expected.

	got, err := d.svc.Update(ctx, ports.UpdateUserRequest{Caller: user.Identity(), UserID: user.ID.String(), Name: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, user.UpdatedAt, got.UpdatedAt)
}

func TestUserService_Update_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		req   func(u *domain.User) ports.UpdateUserRequest
		setup func(d *userTestDeps, u *domain.User)
		code  string
	}{
		{
			name: "email taken",
			req: func(u *domain.User) ports.UpdateUserRequest {
				return ports.UpdateUserRequest{Caller: u.Identity(), UserID: u.ID.String(), Email: "bob@example.com"}
			},
			setup: func(d *userTestDeps, _ *domain.User) {
				d.userRepo.EXPECT().GetByEmail(gomock.Any(), "bob@example.com").Return(&domain.User{ID: uuid.New()}, nil)
			},
			code: "AUTH_002",
		},
		{
			name: "email lost to unique index",
			req: func(u *domain.User) ports.UpdateUserRequest {
				return ports.UpdateUserRequest{Caller: u.Identity(), UserID: u.ID.String(), Email: "bob@example.com"}
			},
			setup: func(d *userTestDeps, _ *domain.User) {
				d.userRepo.EXPECT().GetByEmail(gomock.Any(), "bob@example.com").Return(nil, nil)
				d.userRepo.EXPECT().Update(gomock.Any(), gomock.Any()).
					Return(fmt.Errorf("update user: %w", ports.ErrDuplicateKey))
			},
			code: "AUTH_002",
		},
		{
			name: "invalid email",
			req: func(u *domain.User) ports.UpdateUserRequest {
				return ports.UpdateUserRequest{Caller: u.Identity(), UserID: u.ID.String(), Email: "not-an-email"}
			},
			setup: func(*userTestDeps, *domain.User) {},
			code:  "VAL_001",
		},
		{
			name: "short password",
			req: func(u *domain.User) ports.UpdateUserRequest {
				return ports.UpdateUserRequest{Caller: u.Identity(), UserID: u.ID.String(), Password: "short"}
			},
			setup: func(*userTestDeps, *domain.User) {},
			code:  "VAL_001",
		},
		{
			name: "someone else's record",
			req: func(u *domain.User) ports.UpdateUserRequest {
				return ports.UpdateUserRequest{Caller: newCaller(), UserID: u.ID.String(), Name: "Mallory"}
			},
			setup: func(*userTestDeps, *domain.User) {},
			code:  "LED_005",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := setupUserService(t)
			user := testUser()
			d.userRepo.EXPECT().GetByID(gomock.Any(), user.ID).Return(user, nil)
			tt.setup(d, user)

			_, err := d.svc.Update(context.Background(), tt.req(user))
			var appErr *apperror.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.code, appErr.Code)
		})
	}
}

func TestUserService_Delete(t *testing.T) {
	d := setupUserService(t)
	ctx := context.Background()
	user := testUser()

	d.userRepo.EXPECT().GetByID(ctx, user.ID).Return(user, nil)
	d.userRepo.EXPECT().Delete(ctx, user.ID).Return(nil)

	require.NoError(t, d.svc.Delete(ctx, user.Identity(), user.ID.String()))
}

func TestUserService_Delete_StillOwnsAccounts(t *testing.T) {
	d := setupUserService(t)
	ctx := context.Background()
	user := testUser()

	d.userRepo.EXPECT().GetByID(ctx, user.ID).Return(user, nil)
	d.userRepo.EXPECT().Delete(ctx, user.ID).
		Return(apperror.ErrReferencedResource(errors.New("accounts_owner_id_fkey")))

	err := d.svc.Delete(ctx, user.Identity(), user.ID.String())
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "LED_007", appErr.Code)
	assert.Equal(t, 409, appErr.HTTPStatus)
}

func TestUserService_Delete_Forbidden(t *testing.T) {
	d := setupUserService(t)
	ctx := context.Background()
	user := testUser()

	d.userRepo.EXPECT().GetByID(ctx, user.ID).Return(user, nil)

	err := d.svc.Delete(ctx, newCaller(), user.ID.String())
	assert.True(t, apperror.IsKind(err, apperror.KindForbidden))
}
