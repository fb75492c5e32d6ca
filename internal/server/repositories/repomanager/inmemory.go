package repomanager

import (
	"context"
	"database/sql"
	"time"

	"github.com/helioview/portal/internal/dbx"
	"github.com/helioview/portal/internal/server/repositories/tokens"
	"github.com/helioview/portal/internal/server/repositories/users"
)

// InMemoryRepositoryManager vends process-local repositories. The stores
// are created once and shared across calls, so the DBTX argument is
// ignored. Used when no database DSN is configured and in tests.
type InMemoryRepositoryManager struct {
	users    *users.MemoryRepository
	sessions *tokens.MemoryRepository
	resets   *tokens.MemoryRepository
}

func (m *InMemoryRepositoryManager) Users(_ dbx.DBTX) users.Repository {
	return m.users
}

func (m *InMemoryRepositoryManager) SessionTokens(_ dbx.DBTX) tokens.Repository {
	return m.sessions
}

func (m *InMemoryRepositoryManager) ResetTokens(_ dbx.DBTX) tokens.Repository {
	return m.resets
}

// RunMigrations is a no-op: there is no schema to manage.
func (m *InMemoryRepositoryManager) RunMigrations(_ context.Context, _ *sql.DB) error {
	return nil
}

// NewInMemoryRepositoryManager constructs an in-memory RepositoryManager
// with the given token lifetimes.
func NewInMemoryRepositoryManager(sessionTTL, resetTTL time.Duration) (RepositoryManager, error) {
	return &InMemoryRepositoryManager{
		users:    users.NewMemoryRepository(),
		sessions: tokens.NewMemoryRepository(sessionTTL),
		resets:   tokens.NewMemoryRepository(resetTTL),
	}, nil
}
