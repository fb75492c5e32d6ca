// Package authz implements the portal's role-ordering policy: an
// operation restricted to a role is open to that role and every role
// ranking above it.
package authz

import (
	"errors"

	"github.com/helioview/portal/internal/server/models"
)

// ErrNotAuthorized is returned when a user's role ranks below the one an
// operation requires.
var ErrNotAuthorized = errors.New("not authorized")

// HasRoleOrHigher reports whether the user's role ranks at least as high
// as required. Unknown or malformed roles never satisfy any requirement.
func HasRoleOrHigher(user *models.User, required models.Role) bool {
	if user == nil {
		return false
	}
	rank := user.Role.Rank()
	return rank > 0 && rank >= required.Rank()
}

// Require returns ErrNotAuthorized unless the user holds required or a
// higher role.
func Require(user *models.User, required models.Role) error {
	if !HasRoleOrHigher(user, required) {
		return ErrNotAuthorized
	}
	return nil
}
