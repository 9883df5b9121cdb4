package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-access/internal/model"
	"github.com/stemsi/exstem-access/internal/response"
	"github.com/stemsi/exstem-access/internal/service"
	ws "github.com/stemsi/exstem-access/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler handles the candidate proctoring stream.
type WSHandler struct {
	proctorService *service.ProctorService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(proctorService *service.ProctorService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		proctorService: proctorService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// ProctorStream godoc
// WS /ws/v1/proctor/:code
// Receives visibility events for an attempt in progress. The code must be
// unused and unexpired; the stream never affects grading.
func (h *WSHandler) ProctorStream(c *gin.Context) {
	code, err := h.proctorService.Authorize(c.Request.Context(), c.Param("code"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCodeNotFound), errors.Is(err, service.ErrCodeExpired):
			response.Fail(c, http.StatusForbidden, response.ErrProctorStreamRejected)
		default:
			h.log.Error().Err(err).Msg("Proctor authorize failed")
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Str("access_code", code).Logger()
	wsLog.Info().Msg("Proctor stream opened")

	// The request context ends with the handshake's handler, so events are
	// recorded under a detached context.
	ctx := context.WithoutCancel(c.Request.Context())

	for {
		var msg ws.RequestEnvelope
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionPing:
			_ = ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		case ws.ActionVisibilityLost, ws.ActionVisibilityRestored:
			if err := h.proctorService.Record(ctx, code, model.ProctorEventKind(msg.Action)); err != nil {
				wsLog.Error().Err(err).Str("action", string(msg.Action)).Msg("Record proctor event failed")
				_ = ws.WriteError(conn, "event not recorded")
				continue
			}
			_ = ws.WriteTyped(conn, ws.AckResponse{Event: ws.EventAck, Action: msg.Action})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			_ = ws.WriteError(conn, "unknown action: "+string(msg.Action))
		}
	}
}
