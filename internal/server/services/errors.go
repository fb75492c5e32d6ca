package services

import (
	"errors"
	"fmt"
)

// Error taxonomy returned by AuthService. Two merges are deliberate:
// "unknown email" and "wrong password" collapse into
// ErrInvalidCredentials, and "absent" and "expired" tokens collapse
// into ErrInvalidOrExpiredToken, so callers cannot probe which emails
// are registered. Match with errors.Is.
var (
	ErrMissingFields            = errors.New("email and password are required")
	ErrInvalidCredentials       = errors.New("invalid email or password")
	ErrAccountInactive          = errors.New("account is inactive")
	ErrDuplicateEmail           = errors.New("email is already registered")
	ErrInvalidOrExpiredToken    = errors.New("invalid or expired token")
	ErrPasswordMismatch         = errors.New("passwords do not match")
	ErrWeakPassword             = errors.New("password does not meet strength requirements")
	ErrCurrentPasswordIncorrect = errors.New("current password is incorrect")
)

// ValidationError reports a malformed input field. Always
// user-correctable; never carries stored data.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
