package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// minPasswordLen matches the signup form's client-side rule.
const minPasswordLen = 8

var ErrPasswordTooShort = errors.New("password must be at least 8 characters")

// PasswordHasher hashes and verifies login credentials.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hashedPassword, password string) error
}

type bcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a bcrypt-backed hasher. Out-of-range costs
// fall back to bcrypt.DefaultCost, so callers pass 0 for the default
// and tests pass bcrypt.MinCost to stay fast.
func NewBcryptHasher(cost int) PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &bcryptHasher{cost: cost}
}

func (h *bcryptHasher) Hash(password string) (string, error) {
	if len(password) < minPasswordLen {
		return "", ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (h *bcryptHasher) Compare(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}
