package models

import "time"

// Token is an opaque bearer credential mapping back to a user's email.
// The same record shape backs both session tokens and password-reset
// tokens; only the TTL and the use-once semantics differ between the
// two stores.
type Token struct {
	Token     string
	Email     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the token is past its expiry at instant now.
// A token expiring exactly at now is already expired.
func (t *Token) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
