// Package session holds the candidate-side exam state machine.
//
// A Controller owns one attempt. Every input (timer tick, focus change,
// keystroke, server reply) is an Event passed to Handle, which mutates the
// state and returns the Effects the caller must carry out. Handle is not safe
// for concurrent use; Runner serializes events onto a single goroutine.
package session

import (
	"errors"
	"strings"
	"time"

	"github.com/stemsi/exstem-access/internal/model"
)

// Phase is the lifecycle position of an attempt.
type Phase string

const (
	PhaseLoading      Phase = "loading"
	PhaseNotFound     Phase = "not_found"
	PhaseReady        Phase = "ready"
	PhaseNameEntry    Phase = "name_entry"
	PhaseInProgress   Phase = "in_progress"
	PhaseSubmitting   Phase = "submitting"
	PhaseCompleted    Phase = "completed"
	PhaseSubmitFailed Phase = "submit_failed"
)

// ErrNameRequired is reported when the candidate enters a blank name.
var ErrNameRequired = errors.New("name is required")

// ─── Events ─────────────────────────────────────────────────────────

// Event is an input to Controller.Handle.
type Event interface{ isEvent() }

type (
	// Loaded carries the verified test.
	Loaded struct{ Test model.PublicTest }
	// LoadFailed reports a rejected or unreachable code.
	LoadFailed struct{ Err error }
	// BeginNameEntry moves from the test overview to the name prompt.
	BeginNameEntry struct{}
	// EnterName starts the attempt.
	EnterName struct{ Name string }
	// Tick is one elapsed second.
	Tick struct{}
	// VisibilityLost fires each time the exam loses focus.
	VisibilityLost struct{}
	// VisibilityRestored fires when focus comes back. It has no effect on
	// the state and exists so proctoring can report both edges.
	VisibilityRestored struct{}
	// Answer sets the answer for one question, replacing any earlier value.
	Answer struct {
		QuestionID string
		Value      string
	}
	// RequestSubmit is the candidate asking to finish.
	RequestSubmit struct{}
	ConfirmSubmit struct{}
	CancelSubmit  struct{}
	// SubmitSucceeded carries the graded result from the server.
	SubmitSucceeded struct{ Result model.Result }
	// SubmitFailedEvt reports a failed submission attempt.
	SubmitFailedEvt struct{ Err error }
)

func (Loaded) isEvent()             {}
func (LoadFailed) isEvent()         {}
func (BeginNameEntry) isEvent()     {}
func (EnterName) isEvent()          {}
func (Tick) isEvent()               {}
func (VisibilityLost) isEvent()     {}
func (VisibilityRestored) isEvent() {}
func (Answer) isEvent()             {}
func (RequestSubmit) isEvent()      {}
func (ConfirmSubmit) isEvent()      {}
func (CancelSubmit) isEvent()       {}
func (SubmitSucceeded) isEvent()    {}
func (SubmitFailedEvt) isEvent()    {}

// ─── Effects ────────────────────────────────────────────────────────

// Effect is an instruction produced by Controller.Handle.
type Effect interface{ isEffect() }

type (
	// ShowWarning is emitted on the first visibility loss only.
	ShowWarning struct{}
	// AskConfirmation asks the candidate to confirm a manual submission.
	AskConfirmation struct{}
	// Submit sends the payload to the server. Forced marks a timeout.
	Submit struct {
		Payload model.SubmitExamRequest
		Forced  bool
	}
	ShowResult struct{ Result model.Result }
	ShowError  struct{ Err error }
	// Exit ends the client session.
	Exit struct{}
)

func (ShowWarning) isEffect()     {}
func (AskConfirmation) isEffect() {}
func (Submit) isEffect()          {}
func (ShowResult) isEffect()      {}
func (ShowError) isEffect()       {}
func (Exit) isEffect()            {}

// ─── State ──────────────────────────────────────────────────────────

// State is a snapshot of an attempt.
type State struct {
	Phase            Phase
	CandidateName    string
	Answers          map[string]string
	TabSwitches      int
	RemainingSeconds int
	// AwaitingConfirmation is set between AskConfirmation and the reply.
	AwaitingConfirmation bool
	Result               *model.Result
}

// Controller is the single transition function for one attempt.
type Controller struct {
	code string
	now  func() time.Time

	test      model.PublicTest
	state     State
	startedAt time.Time
	deadline  time.Time
	warned    bool
	// forced is set once the countdown has triggered its submission.
	forced bool
}

// NewController creates a controller for code in PhaseLoading. now is the
// clock used for the start time and deadline.
func NewController(code string, now func() time.Time) *Controller {
	if now == nil {
		now = time.Now
	}
	return &Controller{
		code: code,
		now:  now,
		state: State{
			Phase:   PhaseLoading,
			Answers: make(map[string]string),
		},
	}
}

// Code returns the access code this attempt runs under.
func (c *Controller) Code() string { return c.code }

// Test returns the loaded test. It is the zero value before Loaded.
func (c *Controller) Test() model.PublicTest { return c.test }

// State returns a copy of the current state.
func (c *Controller) State() State {
	s := c.state
	s.Answers = make(map[string]string, len(c.state.Answers))
	for k, v := range c.state.Answers {
		s.Answers[k] = v
	}
	return s
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase { return c.state.Phase }

// Handle applies ev and returns the effects to perform. Events that do not
// apply to the current phase are ignored.
func (c *Controller) Handle(ev Event) []Effect {
	// A failed submission hands control back to the attempt on the next
	// candidate or timer input.
	if c.state.Phase == PhaseSubmitFailed {
		switch ev.(type) {
		case Tick, VisibilityLost, Answer, RequestSubmit:
			c.state.Phase = PhaseInProgress
		}
	}

	switch ev := ev.(type) {
	case Loaded:
		if c.state.Phase != PhaseLoading {
			return nil
		}
		c.test = ev.Test
		c.state.Phase = PhaseReady
		c.state.RemainingSeconds = ev.Test.DurationMinutes * 60

	case LoadFailed:
		if c.state.Phase != PhaseLoading {
			return nil
		}
		c.state.Phase = PhaseNotFound
		return []Effect{ShowError{Err: ev.Err}, Exit{}}

	case BeginNameEntry:
		if c.state.Phase == PhaseReady {
			c.state.Phase = PhaseNameEntry
		}

	case EnterName:
		if c.state.Phase != PhaseNameEntry {
			return nil
		}
		name := strings.TrimSpace(ev.Name)
		if name == "" {
			return []Effect{ShowError{Err: ErrNameRequired}}
		}
		c.state.CandidateName = name
		c.startedAt = c.now()
		c.deadline = c.startedAt.Add(time.Duration(c.state.RemainingSeconds) * time.Second)
		c.state.Phase = PhaseInProgress

	case Tick:
		return c.tick()

	case VisibilityLost:
		if c.state.Phase != PhaseInProgress {
			return nil
		}
		c.state.TabSwitches++
		if !c.warned {
			c.warned = true
			return []Effect{ShowWarning{}}
		}

	case Answer:
		if c.state.Phase == PhaseInProgress {
			c.state.Answers[ev.QuestionID] = ev.Value
		}

	case RequestSubmit:
		if c.state.Phase != PhaseInProgress || c.state.AwaitingConfirmation {
			return nil
		}
		c.state.AwaitingConfirmation = true
		return []Effect{AskConfirmation{}}

	case ConfirmSubmit:
		if c.state.Phase != PhaseInProgress || !c.state.AwaitingConfirmation {
			return nil
		}
		return []Effect{c.submit(false)}

	case CancelSubmit:
		c.state.AwaitingConfirmation = false

	case SubmitSucceeded:
		if c.state.Phase != PhaseSubmitting {
			return nil
		}
		res := ev.Result
		c.state.Result = &res
		c.state.Phase = PhaseCompleted
		return []Effect{ShowResult{Result: res}, Exit{}}

	case SubmitFailedEvt:
		if c.state.Phase != PhaseSubmitting {
			return nil
		}
		c.state.Phase = PhaseSubmitFailed
		// The clock kept running while the request was out.
		c.state.RemainingSeconds = c.secondsLeft()
		return []Effect{ShowError{Err: ev.Err}}
	}

	return nil
}

func (c *Controller) tick() []Effect {
	if c.state.Phase != PhaseInProgress {
		return nil
	}
	if c.state.RemainingSeconds > 0 {
		c.state.RemainingSeconds--
	}
	if c.state.RemainingSeconds > 0 || c.forced {
		return nil
	}
	c.forced = true
	return []Effect{c.submit(true)}
}

// submit moves to PhaseSubmitting and builds the payload. Any pending
// confirmation is dropped.
func (c *Controller) submit(forced bool) Effect {
	c.state.AwaitingConfirmation = false
	c.state.Phase = PhaseSubmitting
	return Submit{Payload: c.payload(), Forced: forced}
}

// payload lists answers in test question order, unanswered questions as
// empty strings.
func (c *Controller) payload() model.SubmitExamRequest {
	answers := make([]model.SubmittedAnswer, 0, len(c.test.Questions))
	for _, q := range c.test.Questions {
		id := q.ID.String()
		answers = append(answers, model.SubmittedAnswer{QuestionID: id, Answer: c.state.Answers[id]})
	}
	started := c.startedAt
	return model.SubmitExamRequest{
		AccessCode:    c.code,
		CandidateName: c.state.CandidateName,
		Answers:       answers,
		TabSwitches:   c.state.TabSwitches,
		StartedAt:     &started,
	}
}

func (c *Controller) secondsLeft() int {
	left := c.deadline.Sub(c.now())
	if left <= 0 {
		return 0
	}
	return int((left + time.Second - 1) / time.Second)
}
