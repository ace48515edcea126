package session

import (
	"errors"
	"strings"
	"testing"

	"github.com/park285/chess-relay/internal/rules"
)

func newTestSession(t *testing.T, opts ...Option) *Session {
	t.Helper()
	s, err := New(rules.NewChess(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func mv(from, to string) rules.MoveRequest { return rules.MoveRequest{From: from, To: to} }

func TestSubmitGatesByTurnAndSeat(t *testing.T) {
	s := newTestSession(t)
	s.Seats().Assign("A")
	s.Seats().Assign("B")
	s.Seats().Assign("C")

	if _, err := s.Submit("B", mv("e7", "e5")); !errors.Is(err, ErrOutOfTurn) {
		t.Fatalf("black before white: %v", err)
	}
	if _, err := s.Submit("C", mv("e2", "e4")); !errors.Is(err, ErrOutOfTurn) {
		t.Fatalf("observer move: %v", err)
	}
	if _, err := s.Submit("ghost", mv("e2", "e4")); !errors.Is(err, ErrOutOfTurn) {
		t.Fatalf("unknown sender: %v", err)
	}
	if len(s.History()) != 0 {
		t.Fatalf("rejected moves reached the log")
	}

	rec, err := s.Submit("A", mv("e2", "e4"))
	if err != nil {
		t.Fatalf("A e2e4: %v", err)
	}
	if rec.From != "e2" || rec.To != "e4" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if _, err := s.Submit("B", mv("e7", "e5")); err != nil {
		t.Fatalf("B e7e5: %v", err)
	}
	if _, err := s.Submit("A", mv("e2", "e4")); err == nil {
		t.Fatalf("replayed e2e4 accepted")
	}
	if n := len(s.History()); n != 2 {
		t.Fatalf("log length = %d, want 2", n)
	}
}

func TestVacantSeatCannotMove(t *testing.T) {
	s := newTestSession(t)
	s.Seats().Assign("A")
	s.Seats().Assign("B")
	s.Seats().Release("A")
	if _, err := s.Submit("B", mv("e2", "e4")); !errors.Is(err, ErrOutOfTurn) {
		t.Fatalf("expected ErrOutOfTurn with vacant white seat, got %v", err)
	}
}

func TestIllegalMoveLeavesStateUnchanged(t *testing.T) {
	s := newTestSession(t)
	s.Seats().Assign("A")
	before := s.CurrentPosition()
	if _, err := s.Submit("A", mv("e2", "e5")); !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("expected ErrIllegalMove, got %v", err)
	}
	if s.CurrentPosition() != before || len(s.History()) != 0 {
		t.Fatalf("state mutated by illegal move")
	}
}

func TestHistoryReplaysToCurrentPosition(t *testing.T) {
	s := newTestSession(t)
	s.Seats().Assign("W")
	s.Seats().Assign("B")
	seq := []struct{ who, from, to string }{
		{"W", "e2", "e4"}, {"B", "c7", "c5"}, {"W", "g1", "f3"}, {"B", "d7", "d6"},
	}
	for _, m := range seq {
		if _, err := s.Submit(m.who, mv(m.from, m.to)); err != nil {
			t.Fatalf("%s %s%s: %v", m.who, m.from, m.to, err)
		}
	}

	oracle := rules.NewChess()
	line := rules.Line{Start: s.StartPosition()}
	pos := line.Start
	for i, rec := range s.History() {
		if rec.Before != pos {
			t.Fatalf("record %d before mismatch", i)
		}
		adj, err := oracle.Apply(line, rules.MoveRequest{From: rec.From, To: rec.To, Promotion: rec.Promotion})
		if err != nil {
			t.Fatalf("replay %d: %v", i, err)
		}
		pos = adj.Position
		line.Moves = append(line.Moves, adj.Record.UCI)
	}
	if pos != s.CurrentPosition() {
		t.Fatalf("replayed position %q != current %q", pos, s.CurrentPosition())
	}
}

func TestHistoryIsACopy(t *testing.T) {
	s := newTestSession(t)
	if _, err := s.ApplyMove(mv("e2", "e4")); err != nil {
		t.Fatalf("ApplyMove: %v", err)
	}
	h := s.History()
	h[0].SAN = "tampered"
	if s.History()[0].SAN == "tampered" {
		t.Fatalf("History exposed internal slice")
	}
}

func TestGameOverRejectsFurtherMoves(t *testing.T) {
	s := newTestSession(t)
	s.Seats().Assign("W")
	s.Seats().Assign("B")
	for _, m := range []struct{ who, from, to string }{
		{"W", "f2", "f3"}, {"B", "e7", "e5"}, {"W", "g2", "g4"}, {"B", "d8", "h4"},
	} {
		if _, err := s.Submit(m.who, mv(m.from, m.to)); err != nil {
			t.Fatalf("%s%s: %v", m.from, m.to, err)
		}
	}
	outcome, method := s.Outcome()
	if outcome != rules.BlackWins || method != "checkmate" {
		t.Fatalf("outcome = %q %q", outcome, method)
	}
	if _, err := s.Submit("W", mv("e2", "e4")); !errors.Is(err, ErrGameOver) {
		t.Fatalf("expected ErrGameOver, got %v", err)
	}
}

func TestShufflingKnightsEndInFivefoldDraw(t *testing.T) {
	s := newTestSession(t)
	s.Seats().Assign("W")
	s.Seats().Assign("B")
	for i := 0; i < 4; i++ {
		for _, m := range []struct{ who, from, to string }{
			{"W", "g1", "f3"}, {"B", "g8", "f6"}, {"W", "f3", "g1"}, {"B", "f6", "g8"},
		} {
			if _, err := s.Submit(m.who, mv(m.from, m.to)); err != nil {
				t.Fatalf("round %d %s%s: %v", i, m.from, m.to, err)
			}
		}
	}
	outcome, method := s.Outcome()
	if outcome != rules.Drawn || !strings.Contains(method, "fivefold") {
		t.Fatalf("outcome = %q method = %q", outcome, method)
	}
	if _, err := s.Submit("W", mv("g1", "f3")); !errors.Is(err, ErrGameOver) {
		t.Fatalf("expected ErrGameOver, got %v", err)
	}
}

func TestFirstMoverPlaysSideToMoveAtStart(t *testing.T) {
	s := newTestSession(t, WithStartPosition("rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1"))
	s.Seats().Assign("A")
	s.Seats().Assign("B")
	if s.FirstSide() != rules.Black {
		t.Fatalf("first side = %q, want b", s.FirstSide())
	}

	if _, err := s.Submit("B", mv("e7", "e5")); !errors.Is(err, ErrOutOfTurn) {
		t.Fatalf("second-mover moved first: %v", err)
	}
	if _, err := s.Submit("A", mv("e7", "e5")); err != nil {
		t.Fatalf("first-mover e7e5: %v", err)
	}
	if _, err := s.Submit("B", mv("g1", "f3")); err != nil {
		t.Fatalf("second-mover g1f3: %v", err)
	}
	if n := len(s.History()); n != 2 {
		t.Fatalf("log length = %d, want 2", n)
	}
	if s.RoleFor(rules.White) != SecondMover || s.Snapshot().FirstSide != rules.Black {
		t.Fatalf("white should belong to the second-mover")
	}
}

type panicOracle struct{ rules.Oracle }

func (panicOracle) Apply(rules.Line, rules.MoveRequest) (rules.Adjudication, error) {
	panic("boom")
}

func (panicOracle) LegalMoves(rules.Position, string) ([]rules.Candidate, error) {
	panic("boom")
}

type brokenOracle struct{ rules.Oracle }

func (brokenOracle) Apply(rules.Line, rules.MoveRequest) (rules.Adjudication, error) {
	return rules.Adjudication{}, errors.New("engine unavailable")
}

func TestOracleFaultIsContained(t *testing.T) {
	s, err := New(panicOracle{rules.NewChess()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.Seats().Assign("A")
	before := s.CurrentPosition()
	if _, err := s.Submit("A", mv("e2", "e4")); !errors.Is(err, ErrOracleFault) {
		t.Fatalf("expected ErrOracleFault, got %v", err)
	}
	if _, err := s.LegalMoves("e2"); !errors.Is(err, ErrOracleFault) {
		t.Fatalf("expected ErrOracleFault from LegalMoves, got %v", err)
	}
	if s.CurrentPosition() != before || len(s.History()) != 0 {
		t.Fatalf("state mutated by faulting oracle")
	}

	s2, err := New(brokenOracle{rules.NewChess()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s2.Seats().Assign("A")
	if _, err := s2.Submit("A", mv("e2", "e4")); !errors.Is(err, ErrOracleFault) {
		t.Fatalf("expected ErrOracleFault for unexpected error, got %v", err)
	}
}

func TestStartPositionValidated(t *testing.T) {
	if _, err := New(rules.NewChess(), WithStartPosition("garbage")); !errors.Is(err, rules.ErrBadPosition) {
		t.Fatalf("expected ErrBadPosition, got %v", err)
	}
	s := newTestSession(t, WithStartPosition("4k3/8/8/8/8/8/8/4K2R w K - 0 1"), WithID("fixed"))
	if s.ID() != "fixed" {
		t.Fatalf("id = %q", s.ID())
	}
	snap := s.Snapshot()
	if snap.Turn != rules.White || snap.Outcome != rules.Ongoing || snap.FirstSeated {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}
