// Package session owns the authoritative game state: position, move log,
// outcome and seats. A Session is not safe for concurrent use; the relay hub
// is its only caller.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/park285/chess-relay/internal/rules"
)

type Session struct {
	id     string
	oracle rules.Oracle
	seats  *Seats

	start   rules.Position
	first   rules.Side
	pos     rules.Position
	log     []rules.MoveRecord
	outcome rules.Outcome
	method  string

	now       func() time.Time
	startedAt time.Time
	updatedAt time.Time
}

type Option func(*Session)

// WithStartPosition starts the session from pos instead of the oracle's
// initial position.
func WithStartPosition(pos rules.Position) Option {
	return func(s *Session) {
		if pos != "" {
			s.start = pos
		}
	}
}

func WithID(id string) Option {
	return func(s *Session) {
		if id != "" {
			s.id = id
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

func New(oracle rules.Oracle, opts ...Option) (*Session, error) {
	if oracle == nil {
		return nil, errors.New("session: oracle is required")
	}
	s := &Session{
		id:      ulid.Make().String(),
		oracle:  oracle,
		seats:   NewSeats(),
		start:   oracle.Initial(),
		outcome: rules.Ongoing,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := oracle.Validate(s.start); err != nil {
		return nil, fmt.Errorf("session: start position: %w", err)
	}
	first, err := oracle.Turn(s.start)
	if err != nil {
		return nil, fmt.Errorf("session: start position: %w", err)
	}
	s.first = first
	s.pos = s.start
	s.startedAt = s.now()
	s.updatedAt = s.startedAt
	return s, nil
}

func (s *Session) ID() string                      { return s.id }
func (s *Session) Seats() *Seats                   { return s.seats }
func (s *Session) CurrentPosition() rules.Position { return s.pos }
func (s *Session) StartPosition() rules.Position   { return s.start }

// FirstSide is the side the first-mover plays: whoever is to move in the
// start position.
func (s *Session) FirstSide() rules.Side { return s.first }

// RoleFor 해당 색을 두는 좌석.
func (s *Session) RoleFor(side rules.Side) Role { return RoleFor(side, s.first) }

// History returns a copy of the move log in play order.
func (s *Session) History() []rules.MoveRecord {
	out := make([]rules.MoveRecord, len(s.log))
	copy(out, s.log)
	return out
}

func (s *Session) Outcome() (rules.Outcome, string) { return s.outcome, s.method }

// Turn reports the side to move.
func (s *Session) Turn() (side rules.Side, err error) {
	defer recoverFault(&err)
	return s.oracle.Turn(s.pos)
}

// ApplyMove adjudicates req without any seat check. Either the position,
// log and outcome all change or none do.
func (s *Session) ApplyMove(req rules.MoveRequest) (rec rules.MoveRecord, err error) {
	if s.outcome.Decided() {
		return rules.MoveRecord{}, ErrGameOver
	}
	adj, err := s.adjudicate(req)
	if err != nil {
		return rules.MoveRecord{}, err
	}
	s.pos = adj.Position
	s.log = append(s.log, adj.Record)
	if adj.Outcome.Decided() {
		s.outcome = adj.Outcome
		s.method = adj.Method
	}
	s.updatedAt = s.now()
	return adj.Record, nil
}

// Submit is the admission gate: only the holder of the seat whose side is to
// move may have a move adjudicated.
func (s *Session) Submit(connID string, req rules.MoveRequest) (rules.MoveRecord, error) {
	if s.outcome.Decided() {
		return rules.MoveRecord{}, ErrGameOver
	}
	// 턴 검증
	side, err := s.Turn()
	if err != nil {
		return rules.MoveRecord{}, err
	}
	holder := s.seats.HolderOf(s.RoleFor(side))
	if holder == "" || holder != connID {
		return rules.MoveRecord{}, ErrOutOfTurn
	}
	return s.ApplyMove(req)
}

// LegalMoves lists candidates for the piece on square.
func (s *Session) LegalMoves(square string) (out []rules.Candidate, err error) {
	defer recoverFault(&err)
	return s.oracle.LegalMoves(s.pos, square)
}

func (s *Session) adjudicate(req rules.MoveRequest) (adj rules.Adjudication, err error) {
	defer recoverFault(&err)
	adj, err = s.oracle.Apply(s.line(), req)
	switch {
	case err == nil:
		return adj, nil
	case errors.Is(err, rules.ErrIllegalMove), errors.Is(err, rules.ErrBadSquare):
		return rules.Adjudication{}, err
	default:
		return rules.Adjudication{}, fmt.Errorf("%w: %v", ErrOracleFault, err)
	}
}

// line 시작 FEN과 지금까지의 UCI 기보. 반복 판정에 필요.
func (s *Session) line() rules.Line {
	moves := make([]string, len(s.log))
	for i, rec := range s.log {
		moves[i] = rec.UCI
	}
	return rules.Line{Start: s.start, Moves: moves}
}

func recoverFault(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: panic: %v", ErrOracleFault, r)
	}
}

// Snapshot is a point-in-time copy for read-only consumers.
type Snapshot struct {
	ID           string
	Position     rules.Position
	Log          []rules.MoveRecord
	Turn         rules.Side
	FirstSide    rules.Side
	Outcome      rules.Outcome
	Method       string
	FirstSeated  bool
	SecondSeated bool
	Observers    int
	StartedAt    time.Time
	UpdatedAt    time.Time
}

func (s *Session) Snapshot() Snapshot {
	turn, _ := s.Turn()
	return Snapshot{
		ID:           s.id,
		Position:     s.pos,
		Log:          s.History(),
		Turn:         turn,
		FirstSide:    s.first,
		Outcome:      s.outcome,
		Method:       s.method,
		FirstSeated:  s.seats.HolderOf(FirstMover) != "",
		SecondSeated: s.seats.HolderOf(SecondMover) != "",
		Observers:    s.seats.Observers(),
		StartedAt:    s.startedAt,
		UpdatedAt:    s.updatedAt,
	}
}
