package tokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/helioview/portal/internal/common"
	"github.com/helioview/portal/internal/dbx"
	"github.com/helioview/portal/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX. The table name
// is fixed at construction (session_tokens or reset_tokens); the schema
// is identical for both.
type PostgresRepository struct {
	db    dbx.DBTX
	table string
	ttl   time.Duration
	now   func() time.Time
}

// NewPostgresRepository constructs a token repository bound to the given
// DBTX and table.
func NewPostgresRepository(db dbx.DBTX, table string, ttl time.Duration) *PostgresRepository {
	return &PostgresRepository{db: db, table: table, ttl: ttl, now: time.Now}
}

// WithNow overrides the clock. Test seam.
func (r *PostgresRepository) WithNow(now func() time.Time) *PostgresRepository {
	r.now = now
	return r
}

func (r *PostgresRepository) Issue(ctx context.Context, email string) (string, error) {
	token, err := common.MakeRandToken(tokenBytes)
	if err != nil {
		return "", err
	}

	now := r.now()
	query := fmt.Sprintf(`
		INSERT INTO %s (token, email, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
	`, r.table)
	if _, err := r.db.ExecContext(ctx, query, token, models.CanonicalEmail(email), now, now.Add(r.ttl)); err != nil {
		return "", fmt.Errorf("db error: %w", err)
	}
	return token, nil
}

func (r *PostgresRepository) Resolve(ctx context.Context, token string) (string, error) {
	query := fmt.Sprintf(`SELECT email, expires_at FROM %s WHERE token = $1`, r.table)

	rec := &models.Token{}
	err := r.db.QueryRowContext(ctx, query, token).Scan(&rec.Email, &rec.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}

	if rec.Expired(r.now()) {
		// Lazy eviction of the expired row.
		if err := r.Invalidate(ctx, token); err != nil {
			return "", err
		}
		return "", common.ErrorNotFound
	}
	return rec.Email, nil
}

func (r *PostgresRepository) Invalidate(ctx context.Context, token string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE token = $1`, r.table)
	if _, err := r.db.ExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Consume(ctx context.Context, token string) (string, error) {
	// Single-statement delete-returning keeps consume atomic: only one
	// concurrent caller gets the row back.
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE token = $1 AND expires_at > $2
		RETURNING email
	`, r.table)

	var email string
	err := r.db.QueryRowContext(ctx, query, token, r.now()).Scan(&email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return email, nil
}

func (r *PostgresRepository) InvalidateAll(ctx context.Context, email string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE email = $1`, r.table)
	if _, err := r.db.ExecContext(ctx, query, models.CanonicalEmail(email)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) PurgeExpired(ctx context.Context) (int, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE expires_at <= $1`, r.table)
	res, err := r.db.ExecContext(ctx, query, r.now())
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return int(n), nil
}
