package main

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-access/internal/model"
	"github.com/stemsi/exstem-access/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineReader(t *testing.T) {
	var echo bytes.Buffer
	raw := "ab\x7fc\r" + // typed "ab", backspace, "c"
		"\x1b[O" + "\x1b[A" + "\x1b[I" + // focus out, arrow up, focus in
		"\x03"
	lr := newLineReader(strings.NewReader(raw), &echo)

	var got []input
	for {
		in, err := lr.next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, in)
		if in.kind == inputInterrupt {
			break
		}
	}

	assert.Equal(t, []input{
		{kind: inputLine, line: "ac"},
		{kind: inputFocusLost},
		{kind: inputFocusGained},
		{kind: inputInterrupt},
	}, got)
	assert.Equal(t, "ab\b \bc\r\n", echo.String())
}

func TestToEvent(t *testing.T) {
	mc := model.PublicQuestion{ID: uuid.New(), Kind: model.QuestionKindMultipleChoice, Options: []string{"Paris", "Rome"}}
	sa := model.PublicQuestion{ID: uuid.New(), Kind: model.QuestionKindShortAnswer}
	test := model.PublicTest{Questions: []model.PublicQuestion{mc, sa}}

	inProgress := session.State{Phase: session.PhaseInProgress}
	confirming := session.State{Phase: session.PhaseInProgress, AwaitingConfirmation: true}

	cases := []struct {
		name  string
		line  string
		state session.State
		want  session.Event
		err   bool
	}{
		{"begin", "", session.State{Phase: session.PhaseReady}, session.BeginNameEntry{}, false},
		{"name", "  Ada ", session.State{Phase: session.PhaseNameEntry}, session.EnterName{Name: "Ada"}, false},
		{"option letter", "1 b", inProgress, session.Answer{QuestionID: mc.ID.String(), Value: "Rome"}, false},
		{"option text", "1 Paris", inProgress, session.Answer{QuestionID: mc.ID.String(), Value: "Paris"}, false},
		{"letter on short answer", "2 x", inProgress, session.Answer{QuestionID: sa.ID.String(), Value: "x"}, false},
		{"free text", "2 noble gas", inProgress, session.Answer{QuestionID: sa.ID.String(), Value: "noble gas"}, false},
		{"submit", "s", inProgress, session.RequestSubmit{}, false},
		{"confirm", "Y", confirming, session.ConfirmSubmit{}, false},
		{"decline", "n", confirming, session.CancelSubmit{}, false},
		{"retry after failure", "submit", session.State{Phase: session.PhaseSubmitFailed}, session.RequestSubmit{}, false},
		{"blank", "  ", inProgress, nil, false},
		{"while submitting", "s", session.State{Phase: session.PhaseSubmitting}, nil, false},
		{"out of range", "3 a", inProgress, nil, true},
		{"garbage", "hello", inProgress, nil, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev, err := toEvent(tc.line, tc.state, test)
			if tc.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, ev)
		})
	}
}

func TestTerminalView(t *testing.T) {
	var out bytes.Buffer
	v := newTerminalView(&out)
	test := model.PublicTest{
		Title:           "Quiz",
		DurationMinutes: 1,
		Questions: []model.PublicQuestion{
			{ID: uuid.New(), Kind: model.QuestionKindMultipleChoice, Prompt: "Capital?", Options: []string{"Paris", "Rome"}, Points: 2},
		},
	}

	v.Render(session.State{Phase: session.PhaseReady, RemainingSeconds: 60}, test)
	v.Render(session.State{Phase: session.PhaseNameEntry, RemainingSeconds: 60}, test)
	v.Render(session.State{Phase: session.PhaseInProgress, RemainingSeconds: 60}, test)
	v.Render(session.State{Phase: session.PhaseInProgress, RemainingSeconds: 59}, test)
	v.Render(session.State{Phase: session.PhaseInProgress, RemainingSeconds: 30}, test)
	v.Apply(session.ShowResult{Result: model.Result{CandidateName: "Ada", Score: 2, TotalPoints: 2}})

	s := out.String()
	assert.Contains(t, s, "1 questions, 1 minutes.")
	assert.Contains(t, s, "1. Capital? (2 pt)")
	assert.Contains(t, s, "B) Rome")
	assert.Contains(t, s, "[00:30 left, 0/1 answered]")
	assert.NotContains(t, s, "00:59")
	assert.Contains(t, s, "Score: 2 / 2")
	assert.NotContains(t, strings.ReplaceAll(s, "\r\n", ""), "\n", "raw mode output needs CRLF")

	state, _ := v.snapshot()
	assert.Equal(t, 30, state.RemainingSeconds)
}
