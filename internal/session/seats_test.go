package session

import (
	"fmt"
	"testing"
)

func TestAssignArrivalOrder(t *testing.T) {
	s := NewSeats()
	want := []Role{FirstMover, SecondMover, Observer, Observer, Observer}
	for i, w := range want {
		id := fmt.Sprintf("c%d", i)
		if got := s.Assign(id); got != w {
			t.Fatalf("connection %d: role = %q, want %q", i, got, w)
		}
	}
	if s.Observers() != 3 {
		t.Fatalf("observers = %d", s.Observers())
	}
}

func TestAssignIsIdempotent(t *testing.T) {
	s := NewSeats()
	s.Assign("a")
	if got := s.Assign("a"); got != FirstMover {
		t.Fatalf("second assign of a = %q", got)
	}
	if got := s.Assign("b"); got != SecondMover {
		t.Fatalf("b = %q", got)
	}
}

func TestReleaseLeavesSeatVacantForNewcomers(t *testing.T) {
	s := NewSeats()
	s.Assign("a")
	s.Assign("b")
	s.Assign("obs")

	if r, ok := s.Release("a"); !ok || r != FirstMover {
		t.Fatalf("release a = %q %v", r, ok)
	}
	if s.HolderOf(FirstMover) != "" {
		t.Fatalf("first seat not vacated")
	}
	// the existing observer is not promoted
	if got := s.Assign("obs"); got != Observer {
		t.Fatalf("observer became %q", got)
	}
	if got := s.Assign("d"); got != FirstMover {
		t.Fatalf("newcomer got %q, want first-mover", got)
	}
	if _, ok := s.Release("nobody"); ok {
		t.Fatalf("release of unknown id reported a role")
	}
}
