package model

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTest() *Test {
	return &Test{
		ID:              uuid.New(),
		Title:           "Mixed",
		DurationMinutes: 15,
		Questions: []Question{
			{ID: uuid.New(), Kind: QuestionKindMultipleChoice, Prompt: "Capital of France?", Options: []string{"Paris", "Rome"}, CorrectAnswer: "SECRET-MC", Points: 2, MediaType: MediaTypeNone},
			{ID: uuid.New(), Kind: QuestionKindTrueFalse, Prompt: "Water is wet", Options: []string{"ignored"}, CorrectAnswer: "SECRET-TF", Points: 1, MediaType: MediaTypeNone},
			{ID: uuid.New(), Kind: QuestionKindShortAnswer, Prompt: "Name a gas", CorrectAnswer: "SECRET-SA", Points: 3, MediaURL: "/uploads/a.png", MediaType: MediaTypeImage},
		},
	}
}

func TestForDelivery_NeverCarriesAnswerKeys(t *testing.T) {
	src := sampleTest()

	pt := ForDelivery(src)
	raw, err := json.Marshal(pt)
	require.NoError(t, err)

	body := string(raw)
	assert.NotContains(t, body, "correct_answer")
	for _, q := range src.Questions {
		assert.False(t, strings.Contains(body, q.CorrectAnswer), "answer key %q leaked", q.CorrectAnswer)
	}
}

func TestForDelivery_DoesNotMutateOrAliasSource(t *testing.T) {
	src := sampleTest()
	before := src.Clone()

	pt := ForDelivery(src)
	pt.Questions[0].Options[0] = "Berlin"
	pt.Title = "changed"

	assert.Equal(t, before, src)
	assert.Equal(t, "Paris", src.Questions[0].Options[0])
}

func TestForDelivery_KeepsOrderAndDropsNonMCOptions(t *testing.T) {
	src := sampleTest()

	pt := ForDelivery(src)

	require.Len(t, pt.Questions, 3)
	for i := range src.Questions {
		assert.Equal(t, src.Questions[i].ID, pt.Questions[i].ID)
		assert.Equal(t, src.Questions[i].Points, pt.Questions[i].Points)
	}
	assert.Equal(t, []string{"Paris", "Rome"}, pt.Questions[0].Options)
	assert.Nil(t, pt.Questions[1].Options)
	assert.Equal(t, "/uploads/a.png", pt.Questions[2].MediaURL)
}

func TestCreateTestRequest_ToTestAppliesDefaults(t *testing.T) {
	req := CreateTestRequest{
		Title: "Defaults",
		Questions: []CreateQuestionRequest{
			{Kind: "short-answer", Prompt: "2+2", CorrectAnswer: "4", Options: []string{"dropped"}},
		},
	}

	test := req.ToTest()

	assert.Equal(t, DefaultDurationMinutes, test.DurationMinutes)
	require.Len(t, test.Questions, 1)
	assert.Equal(t, DefaultQuestionPoints, test.Questions[0].Points)
	assert.Equal(t, MediaTypeNone, test.Questions[0].MediaType)
	assert.Nil(t, test.Questions[0].Options)
	assert.True(t, test.Deliverable())
	assert.Equal(t, 1, test.TotalPoints())
}
