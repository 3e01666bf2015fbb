package stream

import "github.com/okian/playview/internal/domain/model"

// Server message types.
const (
	TypePosition = "position"
	TypeStatus   = "status"
	TypeControls = "controls"
	TypeError    = "error"
)

// Client actions.
const (
	ActionPlay   = "play"
	ActionPause  = "pause"
	ActionToggle = "toggle"
	ActionSeek   = "seek"
	ActionLoad   = "load"
)

// Message is a JSON text message sent to viewers. Frames travel separately
// as binary PNG messages.
type Message struct {
	Type     string          `json:"type"`
	Position *model.Position `json:"position,omitempty"`
	Status   *string         `json:"status,omitempty"`
	Controls *model.Controls `json:"controls,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// Command is a JSON message received from a viewer.
type Command struct {
	Action   string `json:"action"`
	Position int    `json:"position,omitempty"`
	GameID   int64  `json:"gameId,omitempty"`
	PlayID   int64  `json:"playId,omitempty"`
}
