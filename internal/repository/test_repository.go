package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stemsi/exstem-access/internal/model"
)

// TestRepository handles test and question data access.
type TestRepository struct {
	db DBTX
}

// NewTestRepository creates a new TestRepository.
func NewTestRepository(db DBTX) *TestRepository {
	return &TestRepository{db: db}
}

// Create inserts a test and its questions. Callers that need all-or-nothing
// behavior run it through a UnitOfWork.
func (r *TestRepository) Create(ctx context.Context, t *model.Test) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO tests (title, description, duration_minutes)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		t.Title, t.Description, t.DurationMinutes,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert test: %w", err)
	}

	for i := range t.Questions {
		q := &t.Questions[i]
		opts := q.Options
		if opts == nil {
			opts = []string{} // options is NOT NULL
		}
		err := r.db.QueryRow(ctx,
			`INSERT INTO questions (test_id, position, kind, prompt, media_url, media_type, options, correct_answer, points)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 RETURNING id`,
			t.ID, i, q.Kind, q.Prompt, q.MediaURL, q.MediaType, opts, q.CorrectAnswer, q.Points,
		).Scan(&q.ID)
		if err != nil {
			return fmt.Errorf("insert question %d: %w", i, err)
		}
	}
	return nil
}

// GetByID retrieves a test with its questions in authored order.
func (r *TestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	t := &model.Test{}
	err := r.db.QueryRow(ctx,
		`SELECT id, title, description, duration_minutes, created_at
		 FROM tests WHERE id = $1`, id,
	).Scan(&t.ID, &t.Title, &t.Description, &t.DurationMinutes, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	byTest, err := r.questionsFor(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	t.Questions = byTest[id]
	return t, nil
}

// List returns every test, newest first, with questions attached.
func (r *TestRepository) List(ctx context.Context) ([]model.Test, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, title, description, duration_minutes, created_at
		 FROM tests ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tests []model.Test
	var ids []uuid.UUID
	for rows.Next() {
		var t model.Test
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.DurationMinutes, &t.CreatedAt); err != nil {
			return nil, err
		}
		tests = append(tests, t)
		ids = append(ids, t.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return tests, nil
	}

	byTest, err := r.questionsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range tests {
		tests[i].Questions = byTest[tests[i].ID]
	}
	return tests, nil
}

func (r *TestRepository) questionsFor(ctx context.Context, testIDs []uuid.UUID) (map[uuid.UUID][]model.Question, error) {
	rows, err := r.db.Query(ctx,
		`SELECT test_id, id, kind, prompt, media_url, media_type, options, correct_answer, points
		 FROM questions
		 WHERE test_id = ANY($1)
		 ORDER BY test_id, position`, testIDs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]model.Question, len(testIDs))
	for rows.Next() {
		var testID uuid.UUID
		var q model.Question
		if err := rows.Scan(&testID, &q.ID, &q.Kind, &q.Prompt, &q.MediaURL, &q.MediaType, &q.Options, &q.CorrectAnswer, &q.Points); err != nil {
			return nil, err
		}
		out[testID] = append(out[testID], q)
	}
	return out, rows.Err()
}
