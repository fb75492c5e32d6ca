package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/helioview/portal/internal/common"
	"github.com/helioview/portal/internal/dbx"
	"github.com/helioview/portal/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgUniqueViolation is the PostgreSQL error code for unique_violation.
const pgUniqueViolation = "23505"

// PostgresRepository implements Repository over dbx.DBTX (satisfied by
// *sql.DB or *sql.Tx). Email uniqueness is enforced by a unique index on
// lower(email), so both indexes live in the same atomic write.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

const userColumns = `id, name, email, password_hash, role, department, location, active, created_at, updated_at, last_login`

func scanUser(row *sql.Row) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role,
		&u.Department, &u.Location, &u.Active, &u.CreatedAt, &u.UpdatedAt, &u.LastLogin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	stored := *user
	stored.Email = models.CanonicalEmail(stored.Email)
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.Role == "" {
		stored.Role = models.RoleStaff
	}

	query := `
		INSERT INTO users (id, name, email, password_hash, role, department, location, active, created_at, updated_at, last_login)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now(), $9)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		stored.ID, stored.Name, stored.Email, stored.PasswordHash, stored.Role,
		stored.Department, stored.Location, stored.Active, stored.LastLogin,
	).Scan(&stored.CreatedAt, &stored.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &stored, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, models.CanonicalEmail(email)))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) Save(ctx context.Context, user *models.User) (*models.User, error) {
	if user.ID == "" {
		return r.Create(ctx, user)
	}

	stored := *user
	stored.Email = models.CanonicalEmail(stored.Email)

	// UpdatedAt only moves forward, even if the session clock lags.
	query := `
		UPDATE users
		SET name = $2, email = $3, password_hash = $4, role = $5,
		    department = $6, location = $7, active = $8, last_login = $9,
		    updated_at = GREATEST(now(), updated_at + interval '1 microsecond')
		WHERE id = $1
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		stored.ID, stored.Name, stored.Email, stored.PasswordHash, stored.Role,
		stored.Department, stored.Location, stored.Active, stored.LastLogin,
	).Scan(&stored.CreatedAt, &stored.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r.Create(ctx, user)
		}
		if isUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &stored, nil
}

func (r *PostgresRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, models.CanonicalEmail(email)).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM users WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at, email`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.User
	for rows.Next() {
		u := &models.User{}
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role,
			&u.Department, &u.Location, &u.Active, &u.CreatedAt, &u.UpdatedAt, &u.LastLogin); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
