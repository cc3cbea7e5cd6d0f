package models

import "time"

// RefreshToken is an opaque, single-use token that rotates into a new token
// pair. Only the server keeps it; it is not a JWT.
type RefreshToken struct {
	ID        int64
	UserID    int64
	Token     string
	Expires   time.Time
	CreatedAt time.Time
}

// ExpiredAt reports whether the token is no longer usable at now.
func (t *RefreshToken) ExpiredAt(now time.Time) bool {
	return !now.Before(t.Expires)
}
