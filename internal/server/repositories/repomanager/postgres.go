// Package repomanager provides concrete RepositoryManager implementations,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"
	"time"

	"github.com/helioview/portal/internal/dbx"
	"github.com/helioview/portal/internal/server/migrations"
	"github.com/helioview/portal/internal/server/repositories/tokens"
	"github.com/helioview/portal/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

const (
	sessionTokenTable = "session_tokens"
	resetTokenTable   = "reset_tokens"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository
// implementations and exposes a schema migration hook. Token TTLs are
// fixed at construction so every vended store agrees on them.
type PostgresRepositoryManager struct {
	sessionTTL time.Duration
	resetTTL   time.Duration
}

// Users returns a users.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

// SessionTokens returns the session-token store bound to the provided DBTX.
func (m *PostgresRepositoryManager) SessionTokens(db dbx.DBTX) tokens.Repository {
	return tokens.NewPostgresRepository(db, sessionTokenTable, m.sessionTTL)
}

// ResetTokens returns the reset-token store bound to the provided DBTX.
func (m *PostgresRepositoryManager) ResetTokens(db dbx.DBTX) tokens.Repository {
	return tokens.NewPostgresRepository(db, resetTokenTable, m.resetTTL)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetDialect("pgx")
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return err
	}
	return nil
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed
// RepositoryManager with the given token lifetimes.
func NewPostgresRepositoryManager(sessionTTL, resetTTL time.Duration) (RepositoryManager, error) {
	return &PostgresRepositoryManager{sessionTTL: sessionTTL, resetTTL: resetTTL}, nil
}
