package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-access/internal/config"
	"github.com/stemsi/exstem-access/internal/model"
	"github.com/stemsi/exstem-access/internal/repository"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// CodeGenerator produces a candidate access code. Uniqueness is enforced by
// the store, not the generator.
type CodeGenerator func() (string, error)

// GenerateCode returns model.AccessCodeLength characters drawn uniformly
// from [A-Z0-9].
func GenerateCode() (string, error) {
	// 252 is the largest multiple of 36 below 256; bytes above it are
	// rejected to keep the distribution uniform.
	const limit = 252

	out := make([]byte, 0, model.AccessCodeLength)
	buf := make([]byte, model.AccessCodeLength*2)
	for len(out) < model.AccessCodeLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, codeAlphabet[int(b)%len(codeAlphabet)])
			if len(out) == model.AccessCodeLength {
				break
			}
		}
	}
	return string(out), nil
}

// NormalizeCode is the canonical form used for every code lookup.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// AccessCodeService issues, checks and consumes single-use access codes.
type AccessCodeService struct {
	codes    repository.CodeStore
	tests    repository.TestStore
	attempts int
	generate CodeGenerator
	now      func() time.Time
	log      zerolog.Logger
}

// NewAccessCodeService creates a new AccessCodeService.
func NewAccessCodeService(codes repository.CodeStore, tests repository.TestStore, cfg *config.Config, log zerolog.Logger) *AccessCodeService {
	attempts := cfg.CodeIssueAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &AccessCodeService{
		codes:    codes,
		tests:    tests,
		attempts: attempts,
		generate: GenerateCode,
		now:      time.Now,
		log:      log.With().Str("component", "access_code_service").Logger(),
	}
}

// WithGenerator replaces the code generator.
func (s *AccessCodeService) WithGenerator(g CodeGenerator) *AccessCodeService {
	s.generate = g
	return s
}

// WithClock replaces the clock used for expiry decisions.
func (s *AccessCodeService) WithClock(now func() time.Time) *AccessCodeService {
	s.now = now
	return s
}

// Issue creates a fresh unused code bound to testID. A nil ttlHours means
// the code never expires.
func (s *AccessCodeService) Issue(ctx context.Context, testID uuid.UUID, ttlHours *int) (*model.AccessCode, error) {
	if _, err := s.tests.GetByID(ctx, testID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("get test: %w", err)
	}

	var expiresAt *time.Time
	if ttlHours != nil && *ttlHours > 0 {
		t := s.now().Add(time.Duration(*ttlHours) * time.Hour)
		expiresAt = &t
	}

	for attempt := 1; attempt <= s.attempts; attempt++ {
		code, err := s.generate()
		if err != nil {
			return nil, err
		}

		ac := &model.AccessCode{Code: code, TestID: testID, ExpiresAt: expiresAt}
		err = s.codes.Create(ctx, ac)
		if err == nil {
			s.log.Info().Str("test_id", testID.String()).Str("code", code).Msg("Access code issued")
			return ac, nil
		}
		if !errors.Is(err, repository.ErrDuplicateCode) {
			return nil, fmt.Errorf("create code: %w", err)
		}
		s.log.Warn().Int("attempt", attempt).Msg("Access code collision, regenerating")
	}

	return nil, ErrCodeGenerationFailed
}

// Lookup returns the unused, unexpired code. It never consumes it.
func (s *AccessCodeService) Lookup(ctx context.Context, code string) (*model.AccessCode, error) {
	ac, err := findUnused(ctx, s.codes, code)
	if err != nil {
		return nil, err
	}
	if ac.ExpiredAt(s.now()) {
		return nil, ErrCodeExpired
	}
	return ac, nil
}

// Redeem resolves a code to its authoritative test without consuming it.
func (s *AccessCodeService) Redeem(ctx context.Context, code string) (*model.Test, error) {
	ac, err := s.Lookup(ctx, code)
	if err != nil {
		return nil, err
	}
	return loadTest(ctx, s.tests, ac.TestID)
}

// Consume marks the code used. Exactly one of any number of concurrent
// callers succeeds; the rest get ErrCodeAlreadyUsed.
func (s *AccessCodeService) Consume(ctx context.Context, code string) error {
	return consume(ctx, s.codes, code)
}

func findUnused(ctx context.Context, codes repository.CodeStore, code string) (*model.AccessCode, error) {
	ac, err := codes.GetUnused(ctx, NormalizeCode(code))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCodeNotFound
		}
		return nil, fmt.Errorf("get code: %w", err)
	}
	return ac, nil
}

func consume(ctx context.Context, codes repository.CodeStore, code string) error {
	if err := codes.MarkUsed(ctx, NormalizeCode(code)); err != nil {
		if errors.Is(err, repository.ErrCodeUsed) {
			return ErrCodeAlreadyUsed
		}
		return fmt.Errorf("mark code used: %w", err)
	}
	return nil
}

func loadTest(ctx context.Context, tests repository.TestStore, id uuid.UUID) (*model.Test, error) {
	t, err := tests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("get test: %w", err)
	}
	return t, nil
}
