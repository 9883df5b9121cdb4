package model

import "time"

// ProctorEventKind enumerates streamed monitoring signals.
type ProctorEventKind string

const (
	ProctorEventVisibilityLost     ProctorEventKind = "visibility_lost"
	ProctorEventVisibilityRestored ProctorEventKind = "visibility_restored"
)

// ProctorEvent is one advisory monitoring signal reported while a code is in use.
// It never influences grading.
type ProctorEvent struct {
	AccessCode string           `json:"access_code"`
	Kind       ProctorEventKind `json:"kind"`
	RecordedAt time.Time        `json:"recorded_at"`
}
