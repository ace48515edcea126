package session

import (
	"errors"

	"github.com/park285/chess-relay/internal/rules"
)

var (
	// ErrOutOfTurn covers senders that do not hold the seat of the side to
	// move, observers and unknown connections included.
	ErrOutOfTurn   = errors.New("not your turn")
	ErrIllegalMove = rules.ErrIllegalMove
	ErrOracleFault = errors.New("rules evaluation failed")
	ErrGameOver    = errors.New("game is over")
)
