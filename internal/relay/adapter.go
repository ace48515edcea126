package relay

import (
	"github.com/park285/chess-relay/internal/rules"
	"github.com/park285/chess-relay/internal/session"
	"github.com/park285/chess-relay/pkg/wire"
)

func toRulesRequest(req wire.MoveRequest) rules.MoveRequest {
	return rules.MoveRequest{From: req.From, To: req.To, Promotion: req.Promotion}
}

func ToWireRecord(rec rules.MoveRecord) wire.MoveRecord {
	return wire.MoveRecord{
		Color:     string(rec.Side),
		From:      rec.From,
		To:        rec.To,
		Piece:     rec.Piece,
		Captured:  rec.Captured,
		Promotion: rec.Promotion,
		Flags:     rec.Flags,
		SAN:       rec.SAN,
		LAN:       rec.UCI,
		Before:    string(rec.Before),
		After:     string(rec.After),
	}
}

func ToWireLog(log []rules.MoveRecord) []wire.MoveRecord {
	out := make([]wire.MoveRecord, 0, len(log))
	for _, rec := range log {
		out = append(out, ToWireRecord(rec))
	}
	return out
}

func toWireCandidates(cands []rules.Candidate) []wire.LegalMove {
	out := make([]wire.LegalMove, 0, len(cands))
	for _, c := range cands {
		out = append(out, wire.LegalMove{
			From:      c.From,
			To:        c.To,
			Piece:     c.Piece,
			Flags:     c.Flags,
			Promotion: c.Promotion,
		})
	}
	return out
}

func roleAssigned(r session.Role) wire.Envelope {
	return wire.Envelope{Type: wire.EventRoleAssigned, Payload: string(r)}
}

func stateSync(s *session.Session) wire.Envelope {
	return wire.Envelope{Type: wire.EventStateSync, Payload: wire.StateSync{
		Position: string(s.CurrentPosition()),
		Log:      ToWireLog(s.History()),
	}}
}

func moveAccepted(rec rules.MoveRecord) wire.Envelope {
	return wire.Envelope{Type: wire.EventMoveAccepted, Payload: ToWireRecord(rec)}
}

func moveRejected(req wire.MoveRequest) wire.Envelope {
	return wire.Envelope{Type: wire.EventMoveRejected, Payload: req}
}

func legalMoves(cands []rules.Candidate) wire.Envelope {
	return wire.Envelope{Type: wire.EventLegalMoves, Payload: toWireCandidates(cands)}
}

func gameOver(outcome rules.Outcome, method string) wire.Envelope {
	return wire.Envelope{Type: wire.EventGameOver, Payload: wire.GameOver{
		Outcome: string(outcome),
		Method:  method,
		Winner:  string(outcome.Winner()),
	}}
}

func ToWireSnapshot(s session.Snapshot) wire.Snapshot {
	return wire.Snapshot{
		SessionID: s.ID,
		Position:  string(s.Position),
		Turn:      string(s.Turn),
		Outcome:   string(s.Outcome),
		Method:    s.Method,
		Log:       ToWireLog(s.Log),
		Seats: wire.SeatsView{
			FirstMover:      s.FirstSeated,
			SecondMover:     s.SecondSeated,
			Observers:       s.Observers,
			FirstMoverColor: string(s.FirstSide),
		},
		StartedAt: s.StartedAt,
		UpdatedAt: s.UpdatedAt,
	}
}
