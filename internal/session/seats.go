package session

import "github.com/park285/chess-relay/internal/rules"

// Role is a connection's standing in the session.
type Role string

const (
	FirstMover  Role = "first-mover"
	SecondMover Role = "second-mover"
	Observer    Role = "observer"
)

// RoleFor maps a side to the seat that moves for it. first is the side to
// move in the start position; the first-mover always plays it.
func RoleFor(side, first rules.Side) Role {
	if side == first {
		return FirstMover
	}
	return SecondMover
}

// Seats hands out the two player seats in arrival order. Not safe for
// concurrent use; the owning hub serialises access.
type Seats struct {
	first     string
	second    string
	observers map[string]struct{}
}

func NewSeats() *Seats {
	return &Seats{observers: map[string]struct{}{}}
}

// Assign seats id. Repeated calls for the same id return its existing role,
// and an observer stays an observer even after a seat frees up.
func (s *Seats) Assign(id string) Role {
	if r, ok := s.RoleOf(id); ok {
		return r
	}
	switch {
	case s.first == "":
		s.first = id
		return FirstMover
	case s.second == "":
		s.second = id
		return SecondMover
	}
	s.observers[id] = struct{}{}
	return Observer
}

// Release forgets id and reports the role it held.
func (s *Seats) Release(id string) (Role, bool) {
	switch {
	case id == "":
		return "", false
	case s.first == id:
		s.first = ""
		return FirstMover, true
	case s.second == id:
		s.second = ""
		return SecondMover, true
	}
	if _, ok := s.observers[id]; ok {
		delete(s.observers, id)
		return Observer, true
	}
	return "", false
}

// HolderOf returns the connection in seat r, or "" if vacant.
func (s *Seats) HolderOf(r Role) string {
	switch r {
	case FirstMover:
		return s.first
	case SecondMover:
		return s.second
	}
	return ""
}

func (s *Seats) RoleOf(id string) (Role, bool) {
	switch {
	case id == "":
		return "", false
	case s.first == id:
		return FirstMover, true
	case s.second == id:
		return SecondMover, true
	}
	if _, ok := s.observers[id]; ok {
		return Observer, true
	}
	return "", false
}

func (s *Seats) Observers() int { return len(s.observers) }
