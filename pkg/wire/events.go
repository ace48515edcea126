// Package wire holds the JSON frames exchanged with browser clients over the
// relay websocket.
package wire

import "encoding/json"

// Server to client events.
const (
	EventRoleAssigned = "role-assigned"
	EventStateSync    = "state-sync"
	EventMoveAccepted = "move-accepted"
	EventMoveRejected = "move-rejected"
	EventLegalMoves   = "legal-moves-result"
	EventGameOver     = "game-over"
)

// Client to server events.
const (
	EventSubmitMove      = "submit-move"
	EventQueryLegalMoves = "query-legal-moves"
)

// Roles carried by role-assigned.
const (
	RoleFirstMover  = "first-mover"
	RoleSecondMover = "second-mover"
	RoleObserver    = "observer"
)

// Envelope is an outbound frame.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Frame is an inbound frame whose payload is decoded once the type is known.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}
