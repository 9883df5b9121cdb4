package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-access/internal/model"
	"github.com/stemsi/exstem-access/internal/repository"
)

// TestService handles test authoring.
type TestService struct {
	uow   repository.UnitOfWork
	tests repository.TestStore
	log   zerolog.Logger
}

// NewTestService creates a new TestService.
func NewTestService(uow repository.UnitOfWork, tests repository.TestStore, log zerolog.Logger) *TestService {
	return &TestService{
		uow:   uow,
		tests: tests,
		log:   log.With().Str("component", "test_service").Logger(),
	}
}

// Create persists a test and all of its questions, or nothing at all.
func (s *TestService) Create(ctx context.Context, req *model.CreateTestRequest) (*model.Test, error) {
	t := req.ToTest()

	err := s.uow.Do(ctx, func(st repository.Stores) error {
		return st.Tests.Create(ctx, t)
	})
	if err != nil {
		return nil, fmt.Errorf("create test: %w", err)
	}

	s.log.Info().
		Str("test_id", t.ID.String()).
		Int("questions", len(t.Questions)).
		Int("total_points", t.TotalPoints()).
		Msg("Test created")
	return t, nil
}

// Get returns the authoritative test, answer keys included.
func (s *TestService) Get(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	return loadTest(ctx, s.tests, id)
}
