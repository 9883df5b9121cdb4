package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-access/internal/model"
)

// ProctorEventRepository persists streamed monitoring events.
type ProctorEventRepository struct {
	pool *pgxpool.Pool
}

// NewProctorEventRepository creates a new ProctorEventRepository.
func NewProctorEventRepository(pool *pgxpool.Pool) *ProctorEventRepository {
	return &ProctorEventRepository{pool: pool}
}

// InsertBatch bulk-loads events with COPY.
func (r *ProctorEventRepository) InsertBatch(ctx context.Context, events []model.ProctorEvent) error {
	rows := make([][]any, 0, len(events))
	for _, e := range events {
		rows = append(rows, []any{e.AccessCode, string(e.Kind), e.RecordedAt})
	}

	_, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"proctor_events"},
		[]string{"access_code", "kind", "recorded_at"},
		pgx.CopyFromRows(rows),
	)
	return err
}
