package websocket

import (
	"encoding/json"

	"github.com/rocketscienceinc/xoxo-backend/internal/session"
)

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type Response struct {
	Action  string        `json:"action"`
	Payload *StatePayload `json:"payload,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// StatePayload - the session snapshot pushed to the client, with the
// winning triple attached once the game has one.
type StatePayload struct {
	session.State
	WinningPattern *[3]int `json:"winningPattern,omitempty"`
}

type JoinPayload struct {
	Room struct {
		Code string `json:"code"`
	} `json:"room"`
}

type TurnPayload struct {
	Cell int `json:"cell"`
}
