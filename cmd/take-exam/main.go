package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-access/internal/client"
	"github.com/stemsi/exstem-access/internal/config"
	"github.com/stemsi/exstem-access/internal/logger"
	"github.com/stemsi/exstem-access/internal/service"
	"github.com/stemsi/exstem-access/internal/session"
	"golang.org/x/term"
)

const (
	focusReportingOn  = "\x1b[?1004h"
	focusReportingOff = "\x1b[?1004l"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	apiBase := flag.String("api", cfg.APIBaseURL, "exam server API base URL")
	code := flag.String("code", "", "access code (prompted when empty)")
	noProctor := flag.Bool("no-proctor", false, "do not open the proctoring stream")
	flag.Parse()

	// ─── Initialize Logger ─────────────────────────────────────────────
	// Logs go to stderr so they do not interleave with the exam screen.
	log := logger.New(os.Stderr, "warn", cfg.LogFormat)

	if *code == "" {
		fmt.Print("Access code: ")
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		*code = line
	}
	accessCode := service.NormalizeCode(*code)
	if accessCode == "" {
		fmt.Println("Error: an access code is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := client.New(*apiBase, 30*time.Second)

	var (
		reporter session.Reporter
		stream   *client.ProctorStream
	)
	if !*noProctor {
		var err error
		if stream, err = client.DialProctor(ctx, *apiBase, accessCode, log); err != nil {
			log.Warn().Err(err).Msg("Proctoring stream unavailable")
		} else {
			reporter = stream
		}
	}

	status := run(ctx, accessCode, api, reporter, log)
	if stream != nil {
		_ = stream.Close()
	}
	stop()
	os.Exit(status)
}

func run(ctx context.Context, code string, api session.API, reporter session.Reporter, log zerolog.Logger) int {
	view := newTerminalView(os.Stdout)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		oldState, err := term.MakeRaw(fd)
		if err != nil {
			log.Error().Err(err).Msg("Failed to switch the terminal to raw mode")
			return 1
		}
		defer term.Restore(fd, oldState)
		fmt.Print(focusReportingOn)
		defer fmt.Print(focusReportingOff)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan session.Event)
	go readInput(ctx, cancel, view, events)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	runner := session.NewRunner(session.NewController(code, nil), api, view, reporter, log)
	err := runner.Run(ctx, events, ticker.C)
	switch {
	case err == nil:
		state, _ := view.snapshot()
		if state.Phase == session.PhaseCompleted {
			return 0
		}
		return 1
	case errors.Is(err, context.Canceled):
		view.notice("\nExam abandoned. Nothing was submitted.")
		return 1
	default:
		view.notice("\nError: %v", err)
		return 1
	}
}

// readInput translates terminal input into session events until ctx ends.
func readInput(ctx context.Context, cancel context.CancelFunc, view *terminalView, events chan<- session.Event) {
	lr := newLineReader(os.Stdin, crlfWriter{os.Stdout})
	for {
		in, err := lr.next()
		if err != nil {
			cancel()
			return
		}

		var ev session.Event
		switch in.kind {
		case inputInterrupt:
			cancel()
			return
		case inputFocusLost:
			ev = session.VisibilityLost{}
		case inputFocusGained:
			ev = session.VisibilityRestored{}
		case inputLine:
			state, test := view.snapshot()
			ev, err = toEvent(strings.TrimRight(in.line, "\r"), state, test)
			if err != nil {
				view.notice("%v", err)
				continue
			}
		}
		if ev == nil {
			continue
		}

		select {
		case events <- ev:
		case <-ctx.Done():
			return
		}
	}
}
