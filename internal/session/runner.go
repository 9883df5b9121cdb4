package session

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-access/internal/model"
)

// API is the part of the exam server the runner talks to.
type API interface {
	VerifyCode(ctx context.Context, code string) (*model.VerifyCodeResponse, error)
	SubmitExam(ctx context.Context, req *model.SubmitExamRequest) (*model.Result, error)
}

// View presents the attempt. Render is called after every handled event;
// Apply receives every effect except Submit, which the runner performs.
type View interface {
	Render(s State, t model.PublicTest)
	Apply(e Effect)
}

// Reporter forwards proctoring signals. Failures are the reporter's concern;
// they never reach the controller.
type Reporter interface {
	Report(kind model.ProctorEventKind)
}

// Runner feeds one Controller from its event sources on a single goroutine.
type Runner struct {
	ctrl     *Controller
	api      API
	view     View
	reporter Reporter
	log      zerolog.Logger
}

// NewRunner creates a Runner. reporter may be nil.
func NewRunner(ctrl *Controller, api API, view View, reporter Reporter, log zerolog.Logger) *Runner {
	return &Runner{
		ctrl:     ctrl,
		api:      api,
		view:     view,
		reporter: reporter,
		log:      log.With().Str("component", "session_runner").Logger(),
	}
}

// Run verifies the code and then handles input and ticks until the
// controller exits or ctx is cancelled. Submissions run in the background so
// ticks keep flowing; their outcome comes back as an event on the same loop.
func (r *Runner) Run(ctx context.Context, input <-chan Event, ticks <-chan time.Time) error {
	replies := make(chan Event, 1)

	resp, err := r.api.VerifyCode(ctx, r.ctrl.Code())
	var first Event = LoadFailed{Err: err}
	if err == nil {
		first = Loaded{Test: resp.Test}
	}
	if r.dispatch(ctx, first, replies) {
		return nil
	}

	for {
		var ev Event
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticks:
			ev = Tick{}
		case ev = <-input:
		case ev = <-replies:
		}
		if r.dispatch(ctx, ev, replies) {
			return nil
		}
	}
}

// dispatch handles one event and reports whether the session exited.
func (r *Runner) dispatch(ctx context.Context, ev Event, replies chan<- Event) bool {
	if r.reporter != nil && r.attemptActive() {
		switch ev.(type) {
		case VisibilityLost:
			r.reporter.Report(model.ProctorEventVisibilityLost)
		case VisibilityRestored:
			r.reporter.Report(model.ProctorEventVisibilityRestored)
		}
	}

	effects := r.ctrl.Handle(ev)
	r.view.Render(r.ctrl.State(), r.ctrl.Test())

	exit := false
	for _, e := range effects {
		switch e := e.(type) {
		case Submit:
			r.log.Info().Bool("forced", e.Forced).Int("answers", len(e.Payload.Answers)).Msg("Submitting")
			go r.submit(ctx, e.Payload, replies)
		case Exit:
			exit = true
		default:
			r.view.Apply(e)
		}
	}
	return exit
}

// attemptActive reports whether focus changes belong to a running attempt.
// After a failed submit the candidate is still taking the exam.
func (r *Runner) attemptActive() bool {
	switch r.ctrl.Phase() {
	case PhaseInProgress, PhaseSubmitFailed:
		return true
	}
	return false
}

func (r *Runner) submit(ctx context.Context, payload model.SubmitExamRequest, replies chan<- Event) {
	var ev Event
	res, err := r.api.SubmitExam(ctx, &payload)
	if err != nil {
		r.log.Warn().Err(err).Msg("Submit failed")
		ev = SubmitFailedEvt{Err: err}
	} else {
		ev = SubmitSucceeded{Result: *res}
	}
	select {
	case replies <- ev:
	case <-ctx.Done():
	}
}
