package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is an account holder known to the identity collaborator.
type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Address      string    `json:"address,omitempty"`
	PhoneNumber  string    `json:"phone_number,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Identity returns the caller identity this user authenticates as.
func (u *User) Identity() Identity {
	return Identity{UserID: u.ID, Email: u.Email}
}
