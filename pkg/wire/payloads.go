package wire

import "time"

// MoveRequest is the submit-move payload and the move-rejected echo.
type MoveRequest struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

// MoveRecord describes an accepted move.
type MoveRecord struct {
	Color     string `json:"color"`
	From      string `json:"from"`
	To        string `json:"to"`
	Piece     string `json:"piece"`
	Captured  string `json:"captured,omitempty"`
	Promotion string `json:"promotion,omitempty"`
	Flags     string `json:"flags"`
	SAN       string `json:"san"`
	LAN       string `json:"lan"`
	Before    string `json:"before"`
	After     string `json:"after"`
}

// StateSync carries the full position and move log.
type StateSync struct {
	Position string       `json:"position"`
	Log      []MoveRecord `json:"log"`
}

// LegalMove is one entry of legal-moves-result.
type LegalMove struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Piece     string `json:"piece"`
	Flags     string `json:"flags"`
	Promotion string `json:"promotion,omitempty"`
}

// GameOver is broadcast once after the move that decided the game.
type GameOver struct {
	Outcome string `json:"outcome"`
	Method  string `json:"method"`
	Winner  string `json:"winner,omitempty"`
}

type SquareQuery struct {
	Square string `json:"square"`
}

// Snapshot is the read-only view served over HTTP and mirrored to redis.
type Snapshot struct {
	SessionID string       `json:"session_id"`
	Position  string       `json:"position"`
	Turn      string       `json:"turn"`
	Outcome   string       `json:"outcome"`
	Method    string       `json:"method,omitempty"`
	Log       []MoveRecord `json:"log"`
	Seats     SeatsView    `json:"seats"`
	StartedAt time.Time    `json:"started_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

type SeatsView struct {
	FirstMover      bool   `json:"first_mover"`
	SecondMover     bool   `json:"second_mover"`
	Observers       int    `json:"observers"`
	FirstMoverColor string `json:"first_mover_color"`
}
