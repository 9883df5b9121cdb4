package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionVisibilityLost     Action = "visibility_lost"
	ActionVisibilityRestored Action = "visibility_restored"
	ActionPing               Action = "ping"
)

// RequestEnvelope is the only client message shape on the proctor stream.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventAck   Event = "ack"
	EventError Event = "error"
	EventPong  Event = "pong"
)

// AckResponse confirms an event was accepted for recording.
type AckResponse struct {
	Event  Event  `json:"event"`
	Action Action `json:"action"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
