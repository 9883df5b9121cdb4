package validator

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stemsi/exstem-access/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	Setup()
}

func validRequest() model.CreateTestRequest {
	return model.CreateTestRequest{
		Title: "Quiz",
		Questions: []model.CreateQuestionRequest{
			{Kind: "multiple-choice", Prompt: "Pick B", Options: []string{"A", "B"}, CorrectAnswer: "b"},
			{Kind: "true-false", Prompt: "Sky is blue", CorrectAnswer: "True"},
			{Kind: "short-answer", Prompt: "Capital of France", CorrectAnswer: "Paris"},
		},
	}
}

func TestCreateTestRequest_Valid(t *testing.T) {
	req := validRequest()
	assert.NoError(t, binding.Validator.ValidateStruct(&req))
}

func TestCreateTestRequest_Rules(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(r *model.CreateTestRequest)
		field  string
	}{
		{"missing title", func(r *model.CreateTestRequest) { r.Title = "" }, "title"},
		{"no questions", func(r *model.CreateTestRequest) { r.Questions = nil }, "questions"},
		{"unknown kind", func(r *model.CreateTestRequest) { r.Questions[2].Kind = "essay" }, "questions[2].type"},
		{"mc with one option", func(r *model.CreateTestRequest) { r.Questions[0].Options = []string{"B"} }, "questions[0].options"},
		{"mc answer not an option", func(r *model.CreateTestRequest) { r.Questions[0].CorrectAnswer = "C" }, "questions[0].correct_answer"},
		{"tf answer", func(r *model.CreateTestRequest) { r.Questions[1].CorrectAnswer = "maybe" }, "questions[1].correct_answer"},
		{"blank short answer key", func(r *model.CreateTestRequest) { r.Questions[2].CorrectAnswer = "   " }, "questions[2].correct_answer"},
		{"negative points", func(r *model.CreateTestRequest) { r.Questions[2].Points = -1 }, "questions[2].points"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mutate(&req)

			err := binding.Validator.ValidateStruct(&req)
			require.Error(t, err)

			fields := TranslateErrors(err)
			assert.Contains(t, fields, tc.field)
			assert.NotEmpty(t, fields[tc.field])
		})
	}
}

func TestTranslateErrors_NonValidation(t *testing.T) {
	fields := TranslateErrors(assert.AnError)
	assert.Equal(t, assert.AnError.Error(), fields["detail"])
}

func TestSubmitExamRequest_BlankName(t *testing.T) {
	req := model.SubmitExamRequest{AccessCode: "ABC123", CandidateName: "   "}

	err := binding.Validator.ValidateStruct(&req)
	require.Error(t, err)
	assert.Equal(t, "student_name must not be blank", TranslateErrors(err)["student_name"])

	req.CandidateName = " Ada "
	assert.NoError(t, binding.Validator.ValidateStruct(&req))
}
