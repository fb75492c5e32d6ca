// Package users declares the persistence contract for portal account
// records, plus in-memory and PostgreSQL implementations.
//
// Implementations must keep the primary ID index and the canonical-email
// index consistent under concurrent writers: a write that changes a
// user's email removes the old email entry and installs the new one as
// one atomic step.
package users

import (
	"context"

	"github.com/helioview/portal/internal/server/models"
)

// Repository is the credential store backing the auth service.
type Repository interface {
	// Create inserts a new user, assigning an ID when absent and
	// stamping CreatedAt/UpdatedAt. It fails with
	// common.ErrorAlreadyExists when another record already holds the
	// same canonical email.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByEmail canonicalizes email and returns the matching user, or
	// common.ErrorNotFound.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// GetByID returns the user with the given ID, or common.ErrorNotFound.
	GetByID(ctx context.Context, id string) (*models.User, error)

	// Save upserts by ID: an unknown or empty ID inserts, a known ID
	// updates in place. UpdatedAt is touched on every call. Changing the
	// email re-points the email index atomically and fails with
	// common.ErrorAlreadyExists when the target email is taken.
	Save(ctx context.Context, user *models.User) (*models.User, error)

	// ExistsByEmail is an O(1) membership probe against the email index.
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// Delete removes the user with the given ID. Deleting an absent
	// user is a no-op.
	Delete(ctx context.Context, id string) error

	// List returns all users ordered by creation time.
	List(ctx context.Context) ([]*models.User, error)
}
