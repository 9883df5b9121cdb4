package model

import (
	"time"

	"github.com/google/uuid"
)

// AccessCodeLength is the number of characters in a generated access code.
const AccessCodeLength = 6

// AccessCode is a single-use token binding one candidate attempt to one test.
type AccessCode struct {
	Code        string     `json:"code"`
	TestID      uuid.UUID  `json:"test_id"`
	IsUsed      bool       `json:"is_used"`
	GeneratedAt time.Time  `json:"generated_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// ExpiredAt reports whether the code has an expiry that lies before now.
func (a *AccessCode) ExpiredAt(now time.Time) bool {
	return a.ExpiresAt != nil && now.After(*a.ExpiresAt)
}

// IssueCodeRequest is the payload for issuing a code for a test given in the URL.
type IssueCodeRequest struct {
	ExpiresInHours *int `json:"expires_in_hours" binding:"omitempty,min=1,max=8760"`
}

// GenerateCodeRequest is the payload for issuing a code with the test in the body.
type GenerateCodeRequest struct {
	TestID         string `json:"test_id" binding:"required,uuid"`
	ExpiresInHours *int   `json:"expires_in_hours" binding:"omitempty,min=1,max=8760"`
}

// VerifyCodeRequest is sent by a candidate to open a test.
type VerifyCodeRequest struct {
	Code string `json:"code" binding:"required,min=1,max=32"`
}

// VerifyCodeResponse carries the sanitized test back to the candidate.
type VerifyCodeResponse struct {
	Test       PublicTest `json:"test"`
	AccessCode string     `json:"access_code"`
}
