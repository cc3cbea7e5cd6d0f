package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest accepted plaintext password.
const MinPasswordLength = 8

// MaxPasswordLength is bcrypt's input limit in bytes.
const MaxPasswordLength = 72

var ErrPasswordLength = errors.New("password length out of range")

// PasswordHasher hashes passwords with bcrypt at a fixed cost.
type PasswordHasher struct {
	cost  int
	dummy []byte
}

// NewPasswordHasher precomputes a throwaway digest so that CompareDummy
// costs the same as a real verification.
func NewPasswordHasher(cost int) (*PasswordHasher, error) {
	dummy, err := bcrypt.GenerateFromPassword([]byte("metaltracker-dummy-password"), cost)
	if err != nil {
		return nil, err
	}
	return &PasswordHasher{cost: cost, dummy: dummy}, nil
}

func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	if len(plaintext) < MinPasswordLength || len(plaintext) > MaxPasswordLength {
		return "", ErrPasswordLength
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// CompareDummy burns one bcrypt comparison. Login calls it for unknown
// emails so response time does not reveal whether an account exists.
func (h *PasswordHasher) CompareDummy(plaintext string) {
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(plaintext))
}

// VerifyPassword reports whether plaintext matches digest. A malformed
// digest is a mismatch.
func VerifyPassword(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
