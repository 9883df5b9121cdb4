package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-access/internal/model"
	"github.com/stemsi/exstem-access/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTest() *model.Test {
	return &model.Test{
		Title:           "Geography",
		DurationMinutes: 30,
		Questions: []model.Question{
			{Kind: model.QuestionKindShortAnswer, Prompt: "Capital of France?", CorrectAnswer: "Paris", Points: 1},
			{Kind: model.QuestionKindMultipleChoice, Prompt: "2+2?", Options: []string{"3", "4"}, CorrectAnswer: "4", Points: 2},
		},
	}
}

func TestTestStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := New()

	tt := sampleTest()
	require.NoError(t, s.Tests().Create(ctx, tt))
	assert.NotEqual(t, uuid.Nil, tt.ID)
	assert.NotEqual(t, uuid.Nil, tt.Questions[0].ID)

	got, err := s.Tests().GetByID(ctx, tt.ID)
	require.NoError(t, err)
	assert.Equal(t, tt.Title, got.Title)
	assert.Len(t, got.Questions, 2)

	// Mutating the returned copy must not touch the stored test.
	got.Questions[0].CorrectAnswer = "Lyon"
	again, err := s.Tests().GetByID(ctx, tt.ID)
	require.NoError(t, err)
	assert.Equal(t, "Paris", again.Questions[0].CorrectAnswer)

	_, err = s.Tests().GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTestStore_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := New()

	first, second := sampleTest(), sampleTest()
	second.Title = "History"
	require.NoError(t, s.Tests().Create(ctx, first))
	require.NoError(t, s.Tests().Create(ctx, second))

	list, err := s.Tests().List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "History", list[0].Title)
}

func TestCodeStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s := New().WithClock(func() time.Time { return fixed })

	c := &model.AccessCode{Code: "AB12CD", TestID: uuid.New()}
	require.NoError(t, s.Codes().Create(ctx, c))
	assert.Equal(t, fixed, c.GeneratedAt)

	err := s.Codes().Create(ctx, &model.AccessCode{Code: "AB12CD", TestID: uuid.New()})
	assert.ErrorIs(t, err, repository.ErrDuplicateCode)

	got, err := s.Codes().GetUnused(ctx, "AB12CD")
	require.NoError(t, err)
	assert.False(t, got.IsUsed)

	require.NoError(t, s.Codes().MarkUsed(ctx, "AB12CD"))
	assert.ErrorIs(t, s.Codes().MarkUsed(ctx, "AB12CD"), repository.ErrCodeUsed)

	_, err = s.Codes().GetUnused(ctx, "AB12CD")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	assert.ErrorIs(t, s.Codes().MarkUsed(ctx, "ZZZZZZ"), repository.ErrCodeUsed)
}

func TestCodeStore_MarkUsedConcurrent(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Codes().Create(ctx, &model.AccessCode{Code: "RACE01", TestID: uuid.New()}))

	const workers = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Codes().MarkUsed(ctx, "RACE01"); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
}

func TestDo_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Codes().Create(ctx, &model.AccessCode{Code: "ROLL01", TestID: uuid.New()}))

	boom := errors.New("boom")
	err := s.Do(ctx, func(st repository.Stores) error {
		require.NoError(t, st.Codes.MarkUsed(ctx, "ROLL01"))
		require.NoError(t, st.Results.Create(ctx, &model.Result{AccessCode: "ROLL01"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Codes().GetUnused(ctx, "ROLL01")
	require.NoError(t, err, "code must stay unused after a rolled back unit of work")
	assert.False(t, got.IsUsed)
}

func TestDo_Commits(t *testing.T) {
	ctx := context.Background()
	s := New()
	testID := uuid.New()
	require.NoError(t, s.Codes().Create(ctx, &model.AccessCode{Code: "KEEP01", TestID: testID}))

	err := s.Do(ctx, func(st repository.Stores) error {
		if err := st.Codes.MarkUsed(ctx, "KEEP01"); err != nil {
			return err
		}
		return st.Results.Create(ctx, &model.Result{TestID: testID, AccessCode: "KEEP01", Score: 3})
	})
	require.NoError(t, err)

	results, err := s.Results().ListByTest(ctx, testID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 3, results[0].Score)
	assert.NotEqual(t, uuid.Nil, results[0].ID)
}

func TestAdminStore(t *testing.T) {
	ctx := context.Background()
	s := New()

	a := &model.Admin{Username: "root", PasswordHash: "x"}
	require.NoError(t, s.Admins().Create(ctx, a))
	assert.Equal(t, 1, a.ID)
	assert.ErrorIs(t, s.Admins().Create(ctx, &model.Admin{Username: "root"}), repository.ErrDuplicateUser)

	got, err := s.Admins().GetByUsername(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	_, err = s.Admins().GetByID(ctx, 99)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
