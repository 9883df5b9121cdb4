package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-access/internal/database"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, so every repository
// works inside or outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const pgUniqueViolation = "23505"

// PostgresUnitOfWork runs Stores inside a single PostgreSQL transaction.
type PostgresUnitOfWork struct {
	pool *pgxpool.Pool
}

// NewPostgresUnitOfWork creates a new PostgresUnitOfWork.
func NewPostgresUnitOfWork(pool *pgxpool.Pool) *PostgresUnitOfWork {
	return &PostgresUnitOfWork{pool: pool}
}

// Do runs fn in a transaction; any error from fn rolls everything back.
func (u *PostgresUnitOfWork) Do(ctx context.Context, fn func(s Stores) error) error {
	return database.WithTx(ctx, u.pool, func(tx pgx.Tx) error {
		return fn(Stores{
			Tests:   NewTestRepository(tx),
			Codes:   NewAccessCodeRepository(tx),
			Results: NewResultRepository(tx),
		})
	})
}
