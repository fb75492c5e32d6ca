package repomanager

import (
	"context"
	"database/sql"

	"github.com/helioview/portal/internal/dbx"
	"github.com/helioview/portal/internal/server/repositories/tokens"
	"github.com/helioview/portal/internal/server/repositories/users"
)

// RepositoryManager vends the repository set the portal runs on: the
// credential store plus the two expiring-token stores. Both variants
// hand out the same interfaces so the service layer never knows which
// backing it got.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	SessionTokens(db dbx.DBTX) tokens.Repository
	ResetTokens(db dbx.DBTX) tokens.Repository
}
