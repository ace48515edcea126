// Package rules adjudicates moves. Callers see positions as FEN strings and
// never touch the underlying chess library.
package rules

import "errors"

var (
	ErrIllegalMove = errors.New("illegal move")
	ErrBadSquare   = errors.New("bad square")
	ErrBadPosition = errors.New("bad position")
)

// Position is a FEN string.
type Position string

// Side is "w" or "b".
type Side string

const (
	White Side = "w"
	Black Side = "b"
)

func (s Side) Opponent() Side {
	if s == White {
		return Black
	}
	return White
}

// Outcome is a PGN result token.
type Outcome string

const (
	Ongoing   Outcome = "*"
	WhiteWins Outcome = "1-0"
	BlackWins Outcome = "0-1"
	Drawn     Outcome = "1/2-1/2"
)

func (o Outcome) Decided() bool { return o != "" && o != Ongoing }

// Winner returns the winning side, or "" for ongoing and drawn games.
func (o Outcome) Winner() Side {
	switch o {
	case WhiteWins:
		return White
	case BlackWins:
		return Black
	}
	return ""
}

type MoveRequest struct {
	From      string
	To        string
	Promotion string
}

// Candidate is one legal move from a queried square.
type Candidate struct {
	From      string
	To        string
	Piece     string
	Flags     string
	Promotion string
}

// MoveRecord is the immutable result of an accepted move.
type MoveRecord struct {
	Side      Side
	From      string
	To        string
	Piece     string
	Captured  string
	Promotion string
	Flags     string
	SAN       string
	UCI       string
	Before    Position
	After     Position
}

// Line is a game as its start position and the UCI moves played since. The
// oracle replays it so repetition rules see the whole history.
type Line struct {
	Start Position
	Moves []string
}

type Adjudication struct {
	Position Position
	Record   MoveRecord
	Outcome  Outcome
	Method   string
}

// Oracle decides legality. It is deterministic and knows nothing about who
// is allowed to move.
type Oracle interface {
	Initial() Position
	Validate(pos Position) error
	Turn(pos Position) (Side, error)
	LegalMoves(pos Position, square string) ([]Candidate, error)
	Apply(line Line, req MoveRequest) (Adjudication, error)
}
