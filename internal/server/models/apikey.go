package models

import "time"

// APIKey is the stored form of a key. The plaintext is never persisted;
// KeyHash is a keyed digest and KeyPrefix the leading characters kept for
// display.
type APIKey struct {
	ID         int64
	UserID     int64
	Name       *string
	KeyHash    string
	KeyPrefix  string
	CreatedAt  time.Time
	LastUsedAt *time.Time
}
