package grading

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-access/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoQuestionTest() *model.Test {
	return &model.Test{
		ID:              uuid.New(),
		Title:           "Geography",
		DurationMinutes: 10,
		Questions: []model.Question{
			{ID: uuid.New(), Kind: model.QuestionKindMultipleChoice, Options: []string{"A", "B", "C"}, CorrectAnswer: "B", Points: 2},
			{ID: uuid.New(), Kind: model.QuestionKindMultipleChoice, Options: []string{"True", "False"}, CorrectAnswer: "True", Points: 3},
		},
	}
}

func TestGrade_Scenario(t *testing.T) {
	test := twoQuestionTest()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	res := Grade(test, []model.SubmittedAnswer{
		{QuestionID: test.Questions[0].ID.String(), Answer: "B"},
		{QuestionID: test.Questions[1].ID.String(), Answer: "false"},
	}, 2, nil, now)

	assert.Equal(t, 2, res.Score)
	assert.Equal(t, 5, res.TotalPoints)
	require.Len(t, res.Answers, 2)
	assert.True(t, res.Answers[0].IsCorrect)
	assert.False(t, res.Answers[1].IsCorrect)
	assert.Equal(t, 2, res.Proctoring.TabSwitches)
	assert.Equal(t, now, res.Proctoring.EndTime)
	assert.Nil(t, res.Proctoring.StartTime)
	assert.Equal(t, test.ID, res.TestID)
}

func TestIsCorrect_Normalization(t *testing.T) {
	cases := []struct {
		submitted, correct string
		want               bool
	}{
		{" Paris ", "paris", true},
		{"PARIS", "Paris", true},
		{"\tparis\n", " Paris", true},
		{"Pariss", "Paris", false},
		{"Par is", "Paris", false},
		{"", "Paris", false},
		{"", "", false},
		{"  ", "   ", false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, IsCorrect(tc.submitted, tc.correct), "%q vs %q", tc.submitted, tc.correct)
	}
}

func TestGrade_MissingAnswerIsIncorrectNotOmitted(t *testing.T) {
	test := twoQuestionTest()

	res := Grade(test, []model.SubmittedAnswer{
		{QuestionID: test.Questions[0].ID.String(), Answer: "b"},
	}, 0, nil, time.Now())

	require.Len(t, res.Answers, 2)
	assert.True(t, res.Answers[0].IsCorrect)
	assert.Equal(t, test.Questions[1].ID, res.Answers[1].QuestionID)
	assert.Equal(t, "", res.Answers[1].SubmittedAnswer)
	assert.False(t, res.Answers[1].IsCorrect)
	assert.Equal(t, 2, res.Score)
	assert.Equal(t, 5, res.TotalPoints)
}

func TestGrade_BlankAnswerAgainstBlankKey(t *testing.T) {
	// Keys saved before blank keys were rejected must not reward silence.
	test := &model.Test{
		ID: uuid.New(),
		Questions: []model.Question{
			{ID: uuid.New(), Kind: model.QuestionKindShortAnswer, CorrectAnswer: "   ", Points: 4},
		},
	}

	res := Grade(test, []model.SubmittedAnswer{
		{QuestionID: test.Questions[0].ID.String(), Answer: ""},
	}, 0, nil, time.Now())

	require.Len(t, res.Answers, 1)
	assert.False(t, res.Answers[0].IsCorrect)
	assert.Equal(t, 0, res.Score)
	assert.Equal(t, 4, res.TotalPoints)
}

func TestGrade_UnknownQuestionsDroppedAndOrderFollowsTest(t *testing.T) {
	test := twoQuestionTest()

	res := Grade(test, []model.SubmittedAnswer{
		{QuestionID: uuid.NewString(), Answer: "B"},
		{QuestionID: test.Questions[1].ID.String(), Answer: " TRUE "},
		{QuestionID: test.Questions[0].ID.String(), Answer: "B"},
	}, 0, nil, time.Now())

	require.Len(t, res.Answers, 2)
	assert.Equal(t, test.Questions[0].ID, res.Answers[0].QuestionID)
	assert.Equal(t, test.Questions[1].ID, res.Answers[1].QuestionID)
	assert.Equal(t, 5, res.Score)
}

func TestGrade_AllKindsUseSameRule(t *testing.T) {
	test := &model.Test{
		ID: uuid.New(),
		Questions: []model.Question{
			{ID: uuid.New(), Kind: model.QuestionKindTrueFalse, CorrectAnswer: "False", Points: 1},
			{ID: uuid.New(), Kind: model.QuestionKindShortAnswer, CorrectAnswer: "Mitochondria", Points: 4},
		},
	}

	res := Grade(test, []model.SubmittedAnswer{
		{QuestionID: test.Questions[0].ID.String(), Answer: "false"},
		{QuestionID: test.Questions[1].ID.String(), Answer: "  mitochondria"},
	}, 0, nil, time.Now())

	assert.Equal(t, 5, res.Score)
}

func TestGrade_Deterministic(t *testing.T) {
	test := twoQuestionTest()
	answers := []model.SubmittedAnswer{
		{QuestionID: test.Questions[1].ID.String(), Answer: "True"},
	}
	started := time.Now().Add(-time.Minute)
	now := time.Now()

	first := Grade(test, answers, 1, &started, now)
	second := Grade(test, answers, 1, &started, now)

	assert.Equal(t, first, second)
}

func TestGrade_ScoreNeverExceedsTotal(t *testing.T) {
	test := twoQuestionTest()
	var answers []model.SubmittedAnswer
	for i := 0; i < 5; i++ {
		for _, q := range test.Questions {
			answers = append(answers, model.SubmittedAnswer{QuestionID: q.ID.String(), Answer: q.CorrectAnswer})
		}
	}

	res := Grade(test, answers, 0, nil, time.Now())

	assert.Equal(t, res.TotalPoints, res.Score)
	assert.LessOrEqual(t, res.Score, res.TotalPoints)
	assert.Equal(t, test.TotalPoints(), res.TotalPoints)
}

func TestGrade_DoesNotAliasStartTime(t *testing.T) {
	test := twoQuestionTest()
	started := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	res := Grade(test, nil, 0, &started, time.Now())
	started = started.Add(time.Hour)

	require.NotNil(t, res.Proctoring.StartTime)
	assert.Equal(t, 9, res.Proctoring.StartTime.Hour())
}
