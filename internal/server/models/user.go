// Package models holds the server's persisted entities.
package models

import "time"

type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	return t == TierFree || t == TierPremium
}

// User is an account. PasswordHash is nil for accounts created through
// Google sign-in; such accounts cannot use password login.
type User struct {
	ID           int64
	Email        string
	PasswordHash *string
	GoogleID     *string
	Tier         Tier
	IsActive     bool
	IsAdmin      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}
