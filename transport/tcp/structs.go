package tcp

import (
	"github.com/rocketscienceinc/gomoku-backend/internal/entity"
)

// Protocol message kinds, carried in the "type" field of every client
// message. One JSON object per line in both directions.
const (
	msgAuthentication = "authentication"
	msgSelectColor    = "select_color"
	msgReady          = "ready"
	msgMove           = "move"
	msgRestartVote    = "restart_vote"
)

// envelope is decoded first to dispatch on the message kind; the matching
// payload struct is then decoded from the same line.
type envelope struct {
	Type string `json:"type"`
}

type authenticationMessage struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type selectColorMessage struct {
	Color string `json:"color"`
}

type moveMessage struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// statePayload is the full broadcast shape: the shared game state plus the
// per-recipient fields.
type statePayload struct {
	*entity.Game
	YourColor   string `json:"your_color,omitempty"`
	AuthSuccess *bool  `json:"auth_success,omitempty"`
	Message     string `json:"message,omitempty"`
}

// promptPayload is the stage-only shape used before a session has any game
// state to see: the initial authentication prompt and failed-auth replies.
type promptPayload struct {
	Stage       string `json:"stage"`
	AuthSuccess *bool  `json:"auth_success,omitempty"`
	Message     string `json:"message,omitempty"`
	ClientID    *int   `json:"client_id,omitempty"`
}

type errorPayload struct {
	Error string `json:"error"`
}
