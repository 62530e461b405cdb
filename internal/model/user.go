package model

import (
	"time"
)

// User status constants
const (
	UserStatusActive = "active"
	UserStatusLocked = "locked"
)

// User represents a site account created through signup.
type User struct {
	Base
	Email            string     `json:"email" db:"email"`
	FirstName        string     `json:"first_name" db:"first_name"`
	LastName         string     `json:"last_name" db:"last_name"`
	PasswordHash     string     `json:"-" db:"password_hash"`
	Status           string     `json:"status" db:"status"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
	LoginAttempts    int        `json:"-" db:"login_attempts"`
	LastLoginAttempt time.Time  `json:"-" db:"last_login_attempt"`
}

// PublicUser is the shape returned by auth endpoints.
type PublicUser struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// Public strips credential fields for API responses.
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:        u.ID.String(),
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
	}
}
