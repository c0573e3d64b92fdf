package domain

import "github.com/google/uuid"

// Identity is the resolved caller attached to every ledger call.
// UserID is the ownership key; Email is carried for logging and audit.
type Identity struct {
	UserID uuid.UUID
	Email  string
}

// IsZero reports whether no caller was resolved.
func (i Identity) IsZero() bool {
	return i.UserID == uuid.Nil
}
