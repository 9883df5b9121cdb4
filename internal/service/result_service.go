package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-access/internal/model"
	"github.com/stemsi/exstem-access/internal/repository"
	"github.com/xuri/excelize/v2"
)

const resultsSheet = "Results"

// ResultService reads graded submissions for admins.
type ResultService struct {
	results repository.ResultStore
	tests   repository.TestStore
	log     zerolog.Logger
}

// NewResultService creates a new ResultService.
func NewResultService(results repository.ResultStore, tests repository.TestStore, log zerolog.Logger) *ResultService {
	return &ResultService{
		results: results,
		tests:   tests,
		log:     log.With().Str("component", "result_service").Logger(),
	}
}

// ListByTest returns every result for a test, most recent first.
func (s *ResultService) ListByTest(ctx context.Context, testID uuid.UUID) ([]model.Result, error) {
	results, err := s.results.ListByTest(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	if results == nil {
		results = []model.Result{}
	}
	return results, nil
}

// ExportXLSX writes the results of a test as a spreadsheet, one row per
// submission and one answer column per question. It returns a file name
// suitable for Content-Disposition.
func (s *ResultService) ExportXLSX(ctx context.Context, testID uuid.UUID, w io.Writer) (string, error) {
	t, err := loadTest(ctx, s.tests, testID)
	if err != nil {
		return "", err
	}
	results, err := s.ListByTest(ctx, testID)
	if err != nil {
		return "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return "", err
	}

	header := []any{"Student Name", "Access Code", "Score", "Total Points", "Tab Switches", "Started At", "Submitted At"}
	for i := range t.Questions {
		header = append(header, fmt.Sprintf("Q%d", i+1))
	}
	if err := f.SetSheetRow(resultsSheet, "A1", &header); err != nil {
		return "", err
	}

	for i, r := range results {
		started := ""
		if r.Proctoring.StartTime != nil {
			started = r.Proctoring.StartTime.Format("2006-01-02 15:04:05")
		}
		row := []any{
			r.CandidateName,
			r.AccessCode,
			r.Score,
			r.TotalPoints,
			r.Proctoring.TabSwitches,
			started,
			r.SubmittedAt.Format("2006-01-02 15:04:05"),
		}
		for _, a := range r.Answers {
			mark := "✗"
			if a.IsCorrect {
				mark = "✓"
			}
			row = append(row, fmt.Sprintf("%s %s", mark, a.SubmittedAnswer))
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return "", err
		}
		if err := f.SetSheetRow(resultsSheet, cell, &row); err != nil {
			return "", err
		}
	}

	if err := f.Write(w); err != nil {
		return "", fmt.Errorf("write xlsx: %w", err)
	}

	s.log.Info().Str("test_id", testID.String()).Int("rows", len(results)).Msg("Results exported")
	return exportFileName(t.Title), nil
}

func exportFileName(title string) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, strings.TrimSpace(title))
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "test"
	}
	return "results-" + slug + ".xlsx"
}
