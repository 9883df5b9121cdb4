package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stemsi/exstem-access/internal/model"
)

// AccessCodeRepository handles access code data access.
type AccessCodeRepository struct {
	db DBTX
}

// NewAccessCodeRepository creates a new AccessCodeRepository.
func NewAccessCodeRepository(db DBTX) *AccessCodeRepository {
	return &AccessCodeRepository{db: db}
}

// Create inserts a new unused code. The primary key on code is the
// uniqueness authority; a collision surfaces as ErrDuplicateCode.
func (r *AccessCodeRepository) Create(ctx context.Context, c *model.AccessCode) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO access_codes (code, test_id, expires_at)
		 VALUES ($1, $2, $3)
		 RETURNING is_used, generated_at`,
		c.Code, c.TestID, c.ExpiresAt,
	).Scan(&c.IsUsed, &c.GeneratedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrDuplicateCode
		}
		return err
	}
	return nil
}

// GetUnused retrieves a code that has not been consumed yet.
func (r *AccessCodeRepository) GetUnused(ctx context.Context, code string) (*model.AccessCode, error) {
	c := &model.AccessCode{}
	err := r.db.QueryRow(ctx,
		`SELECT code, test_id, is_used, generated_at, expires_at
		 FROM access_codes
		 WHERE code = $1 AND is_used = FALSE`, code,
	).Scan(&c.Code, &c.TestID, &c.IsUsed, &c.GeneratedAt, &c.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// MarkUsed consumes a code with a single conditional update. Concurrent
// callers serialize on the row lock and only one sees an affected row.
func (r *AccessCodeRepository) MarkUsed(ctx context.Context, code string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE access_codes SET is_used = TRUE
		 WHERE code = $1 AND is_used = FALSE`, code)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return ErrCodeUsed
	}
	return nil
}
