// Package models defines the server-side data records shared by the
// repositories and services.
package models

import (
	"strings"
	"time"
)

// Role classifies a user's authorization level within the portal.
// Roles form a strict ordering: staff < manager < director < executive.
type Role string

const (
	RoleStaff     Role = "staff"
	RoleManager   Role = "manager"
	RoleDirector  Role = "director"
	RoleExecutive Role = "executive"
)

// Rank maps a role to its ordinal in the authorization ordering.
// Unknown or malformed roles rank at 0, below every defined role.
func (r Role) Rank() int {
	switch r {
	case RoleStaff:
		return 1
	case RoleManager:
		return 2
	case RoleDirector:
		return 3
	case RoleExecutive:
		return 4
	default:
		return 0
	}
}

// ParseRole normalizes s to a defined Role. The boolean is false when s
// does not name a defined role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Rank() > 0
}

// User is a portal account record.
//
// Email is always held in canonical form (lowercase, trimmed); every
// lookup and uniqueness check goes through CanonicalEmail first.
// PasswordHash must never be serialized outward.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string `json:"-"`
	Role         Role
	Department   string
	Location     string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLogin    time.Time
}

// Touch advances UpdatedAt. It stays monotonic even if the wall clock
// steps backwards between mutations.
func (u *User) Touch(now time.Time) {
	if now.After(u.UpdatedAt) {
		u.UpdatedAt = now
		return
	}
	u.UpdatedAt = u.UpdatedAt.Add(time.Nanosecond)
}

// Summary returns the outward-facing view of the user, safe to hand to
// transport layers.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Role:       u.Role,
		Department: u.Department,
		Location:   u.Location,
		Active:     u.Active,
		LastLogin:  u.LastLogin,
	}
}

// UserSummary is the serializable projection of a User. It carries no
// credential material.
type UserSummary struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       Role      `json:"role"`
	Department string    `json:"department,omitempty"`
	Location   string    `json:"location,omitempty"`
	Active     bool      `json:"active"`
	LastLogin  time.Time `json:"last_login,omitempty"`
}

// CanonicalEmail returns the lowercase, space-trimmed form of email used
// for all lookups and uniqueness checks.
func CanonicalEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
