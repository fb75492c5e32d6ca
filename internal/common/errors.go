// Package common contains shared sentinel errors and small helpers used
// across the portal's storage and service layers. Callers should use
// errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level error returned when an unexpected failure must be
	// hidden behind a generic message. The detailed cause is logged
	// server-side only.
	ErrorInternal = errors.New("internal error")
)
