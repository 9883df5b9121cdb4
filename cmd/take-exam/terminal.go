package main

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/stemsi/exstem-access/internal/model"
	"github.com/stemsi/exstem-access/internal/session"
)

// ─── Input ──────────────────────────────────────────────────────────

type inputKind int

const (
	inputLine inputKind = iota
	inputFocusLost
	inputFocusGained
	inputInterrupt
)

type input struct {
	kind inputKind
	line string
}

// lineReader reads a raw-mode terminal. It does its own echo and line
// editing and picks out the xterm focus reports (ESC [ I and ESC [ O).
type lineReader struct {
	r    *bufio.Reader
	echo io.Writer
	buf  []rune
}

func newLineReader(r io.Reader, echo io.Writer) *lineReader {
	return &lineReader{r: bufio.NewReader(r), echo: echo}
}

func (l *lineReader) next() (input, error) {
	for {
		ch, _, err := l.r.ReadRune()
		if err != nil {
			return input{}, err
		}

		switch ch {
		case 0x1b:
			if kind, ok := l.escape(); ok {
				return input{kind: kind}, nil
			}
		case 0x03, 0x04: // Ctrl-C, Ctrl-D
			return input{kind: inputInterrupt}, nil
		case '\r', '\n':
			line := string(l.buf)
			l.buf = l.buf[:0]
			fmt.Fprint(l.echo, "\r\n")
			return input{kind: inputLine, line: line}, nil
		case 0x7f, 0x08:
			if len(l.buf) > 0 {
				l.buf = l.buf[:len(l.buf)-1]
				fmt.Fprint(l.echo, "\b \b")
			}
		default:
			if ch >= 0x20 {
				l.buf = append(l.buf, ch)
				fmt.Fprint(l.echo, string(ch))
			}
		}
	}
}

// escape consumes a CSI sequence after ESC. Sequences other than focus
// reports (arrow keys and so on) are swallowed.
func (l *lineReader) escape() (inputKind, bool) {
	b, err := l.r.ReadByte()
	if err != nil || b != '[' {
		return 0, false
	}
	for {
		b, err = l.r.ReadByte()
		if err != nil {
			return 0, false
		}
		switch {
		case b == 'I':
			return inputFocusGained, true
		case b == 'O':
			return inputFocusLost, true
		case b >= 0x40 && b <= 0x7e:
			return 0, false
		}
	}
}

// ─── Commands ───────────────────────────────────────────────────────

var errUnknownCommand = errors.New(`unknown command: use "<number> <answer>", "s" to submit`)

// toEvent turns a typed line into a session event given what is on screen.
// A nil event with a nil error means the line is ignored.
func toEvent(line string, s session.State, t model.PublicTest) (session.Event, error) {
	line = strings.TrimSpace(line)

	switch s.Phase {
	case session.PhaseReady:
		return session.BeginNameEntry{}, nil

	case session.PhaseNameEntry:
		return session.EnterName{Name: line}, nil

	case session.PhaseInProgress, session.PhaseSubmitFailed:
		if s.AwaitingConfirmation {
			if strings.EqualFold(line, "y") || strings.EqualFold(line, "yes") {
				return session.ConfirmSubmit{}, nil
			}
			return session.CancelSubmit{}, nil
		}
		if line == "" {
			return nil, nil
		}
		if strings.EqualFold(line, "s") || strings.EqualFold(line, "submit") {
			return session.RequestSubmit{}, nil
		}
		return answerEvent(line, t)
	}
	return nil, nil
}

// answerEvent parses "<number> <answer>". A single letter picks the matching
// option of a multiple-choice question.
func answerEvent(line string, t model.PublicTest) (session.Event, error) {
	num, value, ok := strings.Cut(line, " ")
	if !ok {
		return nil, errUnknownCommand
	}
	n, err := strconv.Atoi(num)
	if err != nil {
		return nil, errUnknownCommand
	}
	if n < 1 || n > len(t.Questions) {
		return nil, fmt.Errorf("no question %d", n)
	}

	q := t.Questions[n-1]
	value = strings.TrimSpace(value)
	if len(q.Options) > 0 && len(value) == 1 {
		idx := int(strings.ToUpper(value)[0]) - 'A'
		if idx >= 0 && idx < len(q.Options) {
			value = q.Options[idx]
		}
	}
	return session.Answer{QuestionID: q.ID.String(), Value: value}, nil
}

// ─── View ───────────────────────────────────────────────────────────

// terminalView renders the attempt as plain text. Output goes through
// crlfWriter because the terminal is in raw mode.
type terminalView struct {
	out io.Writer

	mu    sync.Mutex
	state session.State
	test  model.PublicTest
	shown session.Phase
}

func newTerminalView(out io.Writer) *terminalView {
	return &terminalView{out: crlfWriter{out}}
}

// snapshot is read by the input goroutine.
func (v *terminalView) snapshot() (session.State, model.PublicTest) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state, v.test
}

func (v *terminalView) Render(s session.State, t model.PublicTest) {
	v.mu.Lock()
	prev := v.state
	v.state, v.test = s, t
	first := v.shown != s.Phase
	v.shown = s.Phase
	v.mu.Unlock()

	switch s.Phase {
	case session.PhaseReady:
		if first {
			fmt.Fprintf(v.out, "\n%s\n", t.Title)
			if t.Description != "" {
				fmt.Fprintf(v.out, "%s\n", t.Description)
			}
			fmt.Fprintf(v.out, "%d questions, %d minutes.\nPress Enter to begin.\n", len(t.Questions), t.DurationMinutes)
		}
	case session.PhaseNameEntry:
		if first {
			fmt.Fprint(v.out, "Your name: ")
		}
	case session.PhaseInProgress:
		if first && prev.Phase == session.PhaseNameEntry {
			v.printQuestions(t)
		}
		if r := s.RemainingSeconds; r != prev.RemainingSeconds && (r%60 == 0 || r == 30 || r <= 10) && r > 0 {
			fmt.Fprintf(v.out, "[%s left, %d/%d answered]\n", clock(r), len(s.Answers), len(t.Questions))
		}
	case session.PhaseSubmitting:
		if first {
			fmt.Fprint(v.out, "Submitting...\n")
		}
	}
}

func (v *terminalView) printQuestions(t model.PublicTest) {
	for i, q := range t.Questions {
		fmt.Fprintf(v.out, "\n%d. %s (%d pt)\n", i+1, q.Prompt, q.Points)
		if q.MediaURL != "" {
			fmt.Fprintf(v.out, "   [%s] %s\n", q.MediaType, q.MediaURL)
		}
		switch q.Kind {
		case model.QuestionKindMultipleChoice:
			for j, opt := range q.Options {
				fmt.Fprintf(v.out, "   %c) %s\n", 'A'+j, opt)
			}
		case model.QuestionKindTrueFalse:
			fmt.Fprint(v.out, "   true / false\n")
		}
	}
	fmt.Fprint(v.out, "\nAnswer with \"<number> <answer>\". Type \"s\" to submit.\n")
}

func (v *terminalView) Apply(e session.Effect) {
	switch e := e.(type) {
	case session.ShowWarning:
		fmt.Fprint(v.out, "! Leaving the exam window is recorded.\n")
	case session.AskConfirmation:
		fmt.Fprint(v.out, "Submit now? Answers cannot be changed afterwards. (y/n) ")
	case session.ShowResult:
		fmt.Fprintf(v.out, "\nThank you, %s. Score: %d / %d\n", e.Result.CandidateName, e.Result.Score, e.Result.TotalPoints)
	case session.ShowError:
		fmt.Fprintf(v.out, "Error: %v\n", e.Err)
	}
}

func (v *terminalView) notice(format string, args ...any) {
	fmt.Fprintf(v.out, format+"\n", args...)
}

func clock(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// crlfWriter turns \n into \r\n for raw-mode output.
type crlfWriter struct{ w io.Writer }

func (c crlfWriter) Write(p []byte) (int, error) {
	if _, err := c.w.Write(bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))); err != nil {
		return 0, err
	}
	return len(p), nil
}
