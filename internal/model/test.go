package model

import (
	"time"

	"github.com/google/uuid"
)

// QuestionKind enumerates the supported question formats.
type QuestionKind string

const (
	QuestionKindMultipleChoice QuestionKind = "multiple-choice"
	QuestionKindTrueFalse      QuestionKind = "true-false"
	QuestionKindShortAnswer    QuestionKind = "short-answer"
)

// MediaType describes the attachment referenced by Question.MediaURL.
type MediaType string

const (
	MediaTypeNone  MediaType = "none"
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

// DefaultQuestionPoints is applied when a question is created without points.
const DefaultQuestionPoints = 1

// Test is the authoritative test record. It carries the answer keys and must
// never be serialized to a candidate; use ForDelivery for that.
type Test struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	DurationMinutes int        `json:"duration_minutes"`
	Questions       []Question `json:"questions"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Question is a single test question including its correct answer.
type Question struct {
	ID            uuid.UUID    `json:"id"`
	Kind          QuestionKind `json:"type"`
	Prompt        string       `json:"question_text"`
	MediaURL      string       `json:"media_url,omitempty"`
	MediaType     MediaType    `json:"media_type"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correct_answer"`
	Points        int          `json:"points"`
}

// TotalPoints sums the point values of every question.
func (t *Test) TotalPoints() int {
	total := 0
	for _, q := range t.Questions {
		total += q.Points
	}
	return total
}

// Deliverable reports whether the test can be handed to a candidate.
func (t *Test) Deliverable() bool {
	return t.DurationMinutes > 0 && len(t.Questions) > 0
}

// PublicTest is the candidate-facing projection of a Test. It has no field
// able to hold an answer key.
type PublicTest struct {
	ID              uuid.UUID        `json:"id"`
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	DurationMinutes int              `json:"duration_minutes"`
	Questions       []PublicQuestion `json:"questions"`
	CreatedAt       time.Time        `json:"created_at"`
}

// PublicQuestion is a question without its correct answer.
type PublicQuestion struct {
	ID        uuid.UUID    `json:"id"`
	Kind      QuestionKind `json:"type"`
	Prompt    string       `json:"question_text"`
	MediaURL  string       `json:"media_url,omitempty"`
	MediaType MediaType    `json:"media_type"`
	Options   []string     `json:"options,omitempty"`
	Points    int          `json:"points"`
}

// ForDelivery deep-copies t into its public projection. The source is not modified.
func ForDelivery(t *Test) PublicTest {
	pt := PublicTest{
		ID:              t.ID,
		Title:           t.Title,
		Description:     t.Description,
		DurationMinutes: t.DurationMinutes,
		Questions:       make([]PublicQuestion, len(t.Questions)),
		CreatedAt:       t.CreatedAt,
	}

	for i, q := range t.Questions {
		pq := PublicQuestion{
			ID:        q.ID,
			Kind:      q.Kind,
			Prompt:    q.Prompt,
			MediaURL:  q.MediaURL,
			MediaType: q.MediaType,
			Points:    q.Points,
		}
		// Options only mean something for multiple choice.
		if q.Kind == QuestionKindMultipleChoice && len(q.Options) > 0 {
			pq.Options = append([]string(nil), q.Options...)
		}
		pt.Questions[i] = pq
	}

	return pt
}

// Clone returns a deep copy of t.
func (t *Test) Clone() *Test {
	c := *t
	c.Questions = make([]Question, len(t.Questions))
	for i, q := range t.Questions {
		q.Options = append([]string(nil), q.Options...)
		c.Questions[i] = q
	}
	return &c
}

// CreateTestRequest is the payload for authoring a new test.
type CreateTestRequest struct {
	Title           string                  `json:"title" binding:"required,min=1,max=255"`
	Description     string                  `json:"description" binding:"max=5000"`
	DurationMinutes int                     `json:"duration_minutes" binding:"omitempty,min=1,max=600"`
	Questions       []CreateQuestionRequest `json:"questions" binding:"required,min=1,dive"`
}

// CreateQuestionRequest is a single question within CreateTestRequest.
type CreateQuestionRequest struct {
	Kind          string   `json:"type" binding:"required,question_kind"`
	Prompt        string   `json:"question_text" binding:"required,max=5000"`
	MediaURL      string   `json:"media_url" binding:"omitempty,max=1024"`
	MediaType     string   `json:"media_type" binding:"omitempty,oneof=image video none"`
	Options       []string `json:"options" binding:"omitempty,max=26,dive,max=1000"`
	CorrectAnswer string   `json:"correct_answer" binding:"required,max=1000"`
	Points        int      `json:"points" binding:"omitempty,min=1,max=1000"`
}

// DefaultDurationMinutes is used when a test is created without a duration.
const DefaultDurationMinutes = 60

// ToTest converts the request into an unsaved Test, applying defaults.
func (r *CreateTestRequest) ToTest() *Test {
	t := &Test{
		Title:           r.Title,
		Description:     r.Description,
		DurationMinutes: r.DurationMinutes,
		Questions:       make([]Question, len(r.Questions)),
	}
	if t.DurationMinutes == 0 {
		t.DurationMinutes = DefaultDurationMinutes
	}

	for i, q := range r.Questions {
		question := Question{
			Kind:          QuestionKind(q.Kind),
			Prompt:        q.Prompt,
			MediaURL:      q.MediaURL,
			MediaType:     MediaType(q.MediaType),
			CorrectAnswer: q.CorrectAnswer,
			Points:        q.Points,
		}
		if question.MediaType == "" {
			question.MediaType = MediaTypeNone
		}
		if question.Points == 0 {
			question.Points = DefaultQuestionPoints
		}
		if question.Kind == QuestionKindMultipleChoice {
			question.Options = append([]string(nil), q.Options...)
		}
		t.Questions[i] = question
	}

	return t
}
