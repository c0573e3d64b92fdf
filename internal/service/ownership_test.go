package service

import (
	"testing"

	"eagle-ledger/internal/core/domain"
	"eagle-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestOwnershipGuard_Authorize(t *testing.T) {
	guard := NewOwnershipGuard()
	owner := newCaller()
	acct := testAccount(owner, "01100001", "0")

	assert.NoError(t, guard.Authorize(owner, acct))

	// Same email, different user: ownership is by id only.
	impostor := domain.Identity{UserID: uuid.New(), Email: owner.Email}
	for name, caller := range map[string]domain.Identity{
		"other user": impostor,
		"anonymous":  {},
	} {
		t.Run(name, func(t *testing.T) {
			err := guard.Authorize(caller, acct)
			assert.True(t, apperror.IsKind(err, apperror.KindForbidden))
		})
	}

	assert.True(t, apperror.IsKind(guard.Authorize(owner, nil), apperror.KindForbidden))
}

func TestRandomAccountNumbers_Format(t *testing.T) {
	gen := NewRandomAccountNumbers("01")
	for i := 0; i < 200; i++ {
		n, err := gen.Next()
		assert.NoError(t, err)
		assert.Regexp(t, `^01[1-9][0-9]{5}$`, n)
	}
}
