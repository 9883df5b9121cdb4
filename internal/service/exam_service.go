package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-access/internal/grading"
	"github.com/stemsi/exstem-access/internal/model"
	"github.com/stemsi/exstem-access/internal/repository"
)

// ExamService runs the candidate side: opening a test with a code and
// submitting the finished attempt.
type ExamService struct {
	codes   *AccessCodeService
	catalog *CatalogService
	uow     repository.UnitOfWork
	now     func() time.Time
	log     zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(codes *AccessCodeService, catalog *CatalogService, uow repository.UnitOfWork, log zerolog.Logger) *ExamService {
	return &ExamService{
		codes:   codes,
		catalog: catalog,
		uow:     uow,
		now:     time.Now,
		log:     log.With().Str("component", "exam_service").Logger(),
	}
}

// WithClock replaces the clock used to stamp submissions.
func (s *ExamService) WithClock(now func() time.Time) *ExamService {
	s.now = now
	return s
}

// VerifyCode checks the code and returns the sanitized test. The code stays
// unused, so a candidate can reload before submitting.
func (s *ExamService) VerifyCode(ctx context.Context, code string) (*model.VerifyCodeResponse, error) {
	ac, err := s.codes.Lookup(ctx, code)
	if err != nil {
		return nil, err
	}

	pt, err := s.catalog.Deliverable(ctx, ac.TestID)
	if err != nil {
		return nil, err
	}

	return &model.VerifyCodeResponse{Test: *pt, AccessCode: ac.Code}, nil
}

// Submit grades the attempt, consumes the code and stores the result in one
// unit of work. Expiry is not re-checked here so a code that lapses while
// the candidate is still answering does not lose the attempt.
func (s *ExamService) Submit(ctx context.Context, req *model.SubmitExamRequest) (*model.Result, error) {
	var result model.Result

	err := s.uow.Do(ctx, func(st repository.Stores) error {
		ac, err := findUnused(ctx, st.Codes, req.AccessCode)
		if err != nil {
			return err
		}

		t, err := loadTest(ctx, st.Tests, ac.TestID)
		if err != nil {
			return err
		}

		result = grading.Grade(t, req.Answers, req.TabSwitches, req.StartedAt, s.now())
		result.CandidateName = strings.TrimSpace(req.CandidateName)
		result.AccessCode = ac.Code

		if err := consume(ctx, st.Codes, ac.Code); err != nil {
			return err
		}
		if err := st.Results.Create(ctx, &result); err != nil {
			return fmt.Errorf("save result: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("test_id", result.TestID.String()).
		Str("code", result.AccessCode).
		Int("score", result.Score).
		Int("total_points", result.TotalPoints).
		Int("tab_switches", result.Proctoring.TabSwitches).
		Msg("Exam submitted")

	return &result, nil
}
