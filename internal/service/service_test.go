package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-access/internal/config"
	"github.com/stemsi/exstem-access/internal/model"
	"github.com/stemsi/exstem-access/internal/repository/memory"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:         "test-secret",
		JWTExpiry:         time.Hour,
		BcryptCost:        bcrypt.MinCost,
		CodeIssueAttempts: 3,
		CatalogCacheTTL:   time.Minute,
		MaxUploadBytes:    1 << 20,
	}
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

// twoQuestionTest is the scenario test: q1 worth 2 (B), q2 worth 3 (True).
func twoQuestionTest() *model.CreateTestRequest {
	return &model.CreateTestRequest{
		Title:           "Scenario",
		DurationMinutes: 10,
		Questions: []model.CreateQuestionRequest{
			{Kind: string(model.QuestionKindMultipleChoice), Prompt: "Pick B", Options: []string{"A", "B", "C"}, CorrectAnswer: "B", Points: 2},
			{Kind: string(model.QuestionKindMultipleChoice), Prompt: "Is it true?", Options: []string{"True", "False"}, CorrectAnswer: "True", Points: 3},
		},
	}
}

type fixture struct {
	store   *memory.Store
	tests   *TestService
	codes   *AccessCodeService
	catalog *CatalogService
	exam    *ExamService
	results *ResultService
	now     time.Time
}

func newFixture(t *testing.T, rdb *redis.Client) *fixture {
	t.Helper()
	cfg := testConfig()
	log := zerolog.Nop()
	f := &fixture{now: testNow}
	clock := func() time.Time { return f.now }

	f.store = memory.New().WithClock(clock)
	f.tests = NewTestService(f.store, f.store.Tests(), log)
	f.codes = NewAccessCodeService(f.store.Codes(), f.store.Tests(), cfg, log).WithClock(clock)
	f.catalog = NewCatalogService(f.store.Tests(), rdb, cfg, log)
	f.exam = NewExamService(f.codes, f.catalog, f.store, log).WithClock(clock)
	f.results = NewResultService(f.store.Results(), f.store.Tests(), log)
	return f
}

func (f *fixture) createTest(t *testing.T, req *model.CreateTestRequest) *model.Test {
	t.Helper()
	tt, err := f.tests.Create(context.Background(), req)
	require.NoError(t, err)
	return tt
}

func (f *fixture) issue(t *testing.T, testID string, ttl *int) *model.AccessCode {
	t.Helper()
	tt, err := f.tests.Get(context.Background(), mustUUID(t, testID))
	require.NoError(t, err)
	ac, err := f.codes.Issue(context.Background(), tt.ID, ttl)
	require.NoError(t, err)
	return ac
}

func intPtr(n int) *int { return &n }

func zeroLog() zerolog.Logger { return zerolog.Nop() }
