package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-access/internal/model"
	"github.com/stemsi/exstem-access/internal/response"
	"github.com/stemsi/exstem-access/internal/websocket"
)

// ProctorStream reports focus changes over the proctoring WebSocket. It is
// advisory: a broken stream is logged and the exam carries on.
type ProctorStream struct {
	mu     sync.Mutex
	conn   *gws.Conn
	log    zerolog.Logger
	closed bool
	done   chan struct{}
}

// keepaliveInterval keeps an idle stream well inside the server's read wait.
const keepaliveInterval = websocket.ReadWait / 5

// StreamURL derives the proctor stream URL for code from the REST base URL.
// http://host/api/v1 becomes ws://host/ws/v1/proctor/CODE.
func StreamURL(apiBase, code string) (string, error) {
	u, err := url.Parse(apiBase)
	if err != nil {
		return "", fmt.Errorf("parse api base: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	prefix := strings.TrimSuffix(strings.TrimRight(u.Path, "/"), "/api/v1")
	u.Path = prefix + "/ws/v1/proctor/" + url.PathEscape(code)
	return u.String(), nil
}

// DialProctor opens the stream for code. The server rejects used, unknown and
// expired codes before upgrading.
func DialProctor(ctx context.Context, apiBase, code string, log zerolog.Logger) (*ProctorStream, error) {
	return dialProctor(ctx, apiBase, code, log, keepaliveInterval)
}

func dialProctor(ctx context.Context, apiBase, code string, log zerolog.Logger, every time.Duration) (*ProctorStream, error) {
	target, err := StreamURL(apiBase, code)
	if err != nil {
		return nil, err
	}

	conn, resp, err := gws.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusForbidden {
			return nil, &APIError{Status: resp.StatusCode, Code: response.ErrProctorStreamRejected, Message: response.GetMessage(response.ErrProctorStreamRejected)}
		}
		return nil, fmt.Errorf("dial proctor stream: %w", err)
	}

	s := &ProctorStream{
		conn: conn,
		log:  log.With().Str("component", "proctor_stream").Logger(),
		done: make(chan struct{}),
	}
	go s.drain()
	go s.keepalive(every)
	return s, nil
}

// Report implements session.Reporter.
func (s *ProctorStream) Report(kind model.ProctorEventKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if err := websocket.Send(s.conn, websocket.Action(kind)); err != nil {
		s.log.Warn().Err(err).Str("kind", string(kind)).Msg("Proctor event not sent")
	}
}

// Close shuts the stream down.
func (s *ProctorStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.done)
	_ = s.conn.WriteMessage(gws.CloseMessage, gws.FormatCloseMessage(gws.CloseNormalClosure, ""))
	return s.conn.Close()
}

// drain reads server replies so control frames are processed. Error replies
// are logged.
func (s *ProctorStream) drain() {
	for {
		var msg struct {
			Event websocket.Event `json:"event"`
			Error string          `json:"error"`
		}
		if err := s.conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Event == websocket.EventError {
			s.log.Warn().Str("error", msg.Error).Msg("Proctor stream error")
		}
	}
}

// keepalive pings the server until Close. An attempt can go minutes without
// a focus change, and the server drops connections that stay silent.
func (s *ProctorStream) keepalive(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			if !s.closed {
				if err := websocket.Send(s.conn, websocket.ActionPing); err != nil {
					s.log.Debug().Err(err).Msg("Proctor keepalive failed")
				}
			}
			s.mu.Unlock()
		}
	}
}
