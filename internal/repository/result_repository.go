package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-access/internal/model"
)

// ResultRepository handles graded submission data access.
type ResultRepository struct {
	db DBTX
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(db DBTX) *ResultRepository {
	return &ResultRepository{db: db}
}

// Create inserts a result and fills in its ID and SubmittedAt.
func (r *ResultRepository) Create(ctx context.Context, res *model.Result) error {
	answers, err := json.Marshal(res.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}

	return r.db.QueryRow(ctx,
		`INSERT INTO results (test_id, access_code, student_name, score, total_points, answers, tab_switches, start_time, end_time)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, submitted_at`,
		res.TestID, res.AccessCode, res.CandidateName, res.Score, res.TotalPoints, answers,
		res.Proctoring.TabSwitches, res.Proctoring.StartTime, res.Proctoring.EndTime,
	).Scan(&res.ID, &res.SubmittedAt)
}

// ListByTest returns every result for a test, most recent first.
func (r *ResultRepository) ListByTest(ctx context.Context, testID uuid.UUID) ([]model.Result, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, test_id, access_code, student_name, score, total_points, answers,
		        tab_switches, start_time, end_time, submitted_at
		 FROM results
		 WHERE test_id = $1
		 ORDER BY submitted_at DESC`, testID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.Result
	for rows.Next() {
		var res model.Result
		var answers []byte
		if err := rows.Scan(
			&res.ID, &res.TestID, &res.AccessCode, &res.CandidateName, &res.Score, &res.TotalPoints, &answers,
			&res.Proctoring.TabSwitches, &res.Proctoring.StartTime, &res.Proctoring.EndTime, &res.SubmittedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(answers, &res.Answers); err != nil {
			return nil, fmt.Errorf("unmarshal answers for result %s: %w", res.ID, err)
		}
		results = append(results, res)
	}
	return results, rows.Err()
}
