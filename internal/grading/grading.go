// Package grading scores a submission against a test's answer keys.
//
// Every question kind uses the same rule: the submitted text and the correct
// answer are compared after trimming surrounding whitespace and lowering case.
// There is no partial credit and no fuzzy matching.
package grading

import (
	"strings"
	"time"

	"github.com/stemsi/exstem-access/internal/model"
)

// Normalize is the comparison form of an answer.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// IsCorrect reports whether submitted matches the correct answer. A blank
// answer is never correct, even against a blank key.
func IsCorrect(submitted, correct string) bool {
	s := Normalize(submitted)
	return s != "" && s == Normalize(correct)
}

// Grade scores answers against t. It walks the test's questions in order, so
// the breakdown always has exactly one record per question; answers for
// unknown question IDs are ignored and missing answers grade as empty.
//
// Grade has no side effects. ID, CandidateName, AccessCode and SubmittedAt
// are left for the caller.
func Grade(t *model.Test, answers []model.SubmittedAnswer, tabSwitches int, startedAt *time.Time, now time.Time) model.Result {
	// First answer wins when a question ID is repeated.
	byQuestion := make(map[string]string, len(answers))
	for _, a := range answers {
		if _, seen := byQuestion[a.QuestionID]; !seen {
			byQuestion[a.QuestionID] = a.Answer
		}
	}

	res := model.Result{
		TestID:  t.ID,
		Answers: make([]model.GradedAnswer, 0, len(t.Questions)),
		Proctoring: model.ProctoringLog{
			TabSwitches: tabSwitches,
			EndTime:     now,
		},
	}
	if startedAt != nil {
		st := *startedAt
		res.Proctoring.StartTime = &st
	}
	if res.Proctoring.TabSwitches < 0 {
		res.Proctoring.TabSwitches = 0
	}

	for _, q := range t.Questions {
		res.TotalPoints += q.Points

		submitted, answered := byQuestion[q.ID.String()]
		correct := answered && IsCorrect(submitted, q.CorrectAnswer)
		if correct {
			res.Score += q.Points
		}

		res.Answers = append(res.Answers, model.GradedAnswer{
			QuestionID:      q.ID,
			SubmittedAnswer: submitted,
			IsCorrect:       correct,
		})
	}

	return res
}
