package model

import (
	"time"

	"github.com/google/uuid"
)

// Result is a graded submission. It is created once and never modified.
type Result struct {
	ID            uuid.UUID      `json:"id"`
	CandidateName string         `json:"student_name"`
	TestID        uuid.UUID      `json:"test_id"`
	AccessCode    string         `json:"access_code"`
	Score         int            `json:"score"`
	TotalPoints   int            `json:"total_points"`
	Answers       []GradedAnswer `json:"answers"`
	Proctoring    ProctoringLog  `json:"logs"`
	SubmittedAt   time.Time      `json:"submitted_at"`
}

// GradedAnswer is the grading record for one test question.
type GradedAnswer struct {
	QuestionID      uuid.UUID `json:"question_id"`
	SubmittedAnswer string    `json:"student_answer"`
	IsCorrect       bool      `json:"is_correct"`
}

// ProctoringLog is the advisory, client-reported monitoring summary.
type ProctoringLog struct {
	TabSwitches int        `json:"tab_switches"`
	StartTime   *time.Time `json:"start_time,omitempty"`
	EndTime     time.Time  `json:"end_time"`
}

// SubmittedAnswer is one answer as sent by the candidate.
type SubmittedAnswer struct {
	QuestionID string `json:"question_id" binding:"required,max=64"`
	Answer     string `json:"answer" binding:"max=5000"`
}

// SubmitExamRequest is the payload for finishing an attempt.
type SubmitExamRequest struct {
	AccessCode    string            `json:"access_code" binding:"required,min=1,max=32"`
	CandidateName string            `json:"student_name" binding:"required,notblank,max=255"`
	Answers       []SubmittedAnswer `json:"student_answers" binding:"omitempty,max=1000,dive"`
	TabSwitches   int               `json:"tab_switches" binding:"min=0"`
	StartedAt     *time.Time        `json:"started_at" binding:"omitempty"`
}
