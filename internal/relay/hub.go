// Package relay runs the session event loop. Every connect, disconnect,
// move and query is an event consumed by one goroutine, so the session and
// peer table need no locks.
package relay

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chess-relay/internal/session"
	"github.com/park285/chess-relay/pkg/wire"
)

var ErrHubClosed = errors.New("relay: hub closed")

type Hub struct {
	sess     *session.Session
	log      *zap.Logger
	dispatch *Dispatcher

	notifyOutOfTurn bool

	events chan any
	done   chan struct{}
	peers  map[string]Peer
	now    func() time.Time
}

type Option func(*Hub)

func WithLogger(l *zap.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.log = l
		}
	}
}

func WithQueueSize(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.events = make(chan any, n)
		}
	}
}

// WithOutOfTurnNotice makes out-of-turn submissions answer with a private
// move-rejected instead of being dropped silently.
func WithOutOfTurnNotice(on bool) Option {
	return func(h *Hub) { h.notifyOutOfTurn = on }
}

func WithDispatcher(d *Dispatcher) Option {
	return func(h *Hub) { h.dispatch = d }
}

func NewHub(sess *session.Session, opts ...Option) *Hub {
	h := &Hub{
		sess:   sess,
		log:    zap.NewNop(),
		events: make(chan any, 256),
		done:   make(chan struct{}),
		peers:  map[string]Peer{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type joinEvent struct{ peer Peer }

type leaveEvent struct{ id string }

type moveEvent struct {
	id  string
	req wire.MoveRequest
}

type queryEvent struct {
	id     string
	square string
}

type snapshotEvent struct{ reply chan session.Snapshot }

// Run consumes events until ctx is cancelled, then closes every peer.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	h.log.Info("relay_start", zap.String("session_id", h.sess.ID()))
	for {
		select {
		case <-ctx.Done():
			// 종료: 남은 피어 전부 정리
			for id, p := range h.peers {
				p.Close("server shutting down")
				delete(h.peers, id)
			}
			h.log.Info("relay_stop", zap.String("session_id", h.sess.ID()))
			return
		case ev := <-h.events:
			h.handle(ev)
		}
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} { return h.done }

func (h *Hub) Join(ctx context.Context, p Peer) error { return h.post(ctx, joinEvent{peer: p}) }

// Leave never waits on a caller context; a closing connection must always be
// able to give up its seat.
func (h *Hub) Leave(id string) {
	select {
	case h.events <- leaveEvent{id: id}:
	case <-h.done:
	}
}

func (h *Hub) SubmitMove(ctx context.Context, id string, req wire.MoveRequest) error {
	return h.post(ctx, moveEvent{id: id, req: req})
}

func (h *Hub) QueryLegalMoves(ctx context.Context, id, square string) error {
	return h.post(ctx, queryEvent{id: id, square: square})
}

// Snapshot reads the session through the loop.
func (h *Hub) Snapshot(ctx context.Context) (session.Snapshot, error) {
	reply := make(chan session.Snapshot, 1)
	if err := h.post(ctx, snapshotEvent{reply: reply}); err != nil {
		return session.Snapshot{}, err
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-ctx.Done():
		return session.Snapshot{}, ctx.Err()
	case <-h.done:
		return session.Snapshot{}, ErrHubClosed
	}
}

func (h *Hub) post(ctx context.Context, ev any) error {
	select {
	case <-h.done:
		return ErrHubClosed
	default:
	}
	select {
	case h.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return ErrHubClosed
	}
}

func (h *Hub) handle(ev any) {
	switch e := ev.(type) {
	case joinEvent:
		h.onJoin(e.peer)
	case leaveEvent:
		h.onLeave(e.id)
	case moveEvent:
		h.onMove(e.id, e.req)
	case queryEvent:
		h.onQuery(e.id, e.square)
	case snapshotEvent:
		e.reply <- h.sess.Snapshot()
	}
}

func (h *Hub) onJoin(p Peer) {
	id := p.ID()
	// 같은 연결의 중복 join 무시
	if _, ok := h.peers[id]; ok {
		return
	}
	role := h.sess.Seats().Assign(id)
	h.peers[id] = p
	h.log.Info("relay_join",
		zap.String("session_id", h.sess.ID()),
		zap.String("conn_id", id),
		zap.String("role", string(role)),
		zap.Int("peers", len(h.peers)),
	)
	if !h.sendTo(id, roleAssigned(role)) {
		return
	}
	h.sendTo(id, stateSync(h.sess))
}

func (h *Hub) onLeave(id string) {
	if _, ok := h.peers[id]; !ok {
		return
	}
	h.drop(id, "")
}

func (h *Hub) drop(id, reason string) {
	p, ok := h.peers[id]
	if !ok {
		return
	}
	delete(h.peers, id)
	role, _ := h.sess.Seats().Release(id)
	if reason != "" {
		p.Close(reason)
	}
	h.log.Info("relay_leave",
		zap.String("session_id", h.sess.ID()),
		zap.String("conn_id", id),
		zap.String("role", string(role)),
		zap.String("reason", reason),
		zap.Int("peers", len(h.peers)),
	)
}

func (h *Hub) onMove(id string, req wire.MoveRequest) {
	if _, ok := h.peers[id]; !ok {
		return
	}
	// 턴 검증 + 판정
	rec, err := h.sess.Submit(id, toRulesRequest(req))
	switch {
	case err == nil:
	case errors.Is(err, session.ErrOutOfTurn):
		h.log.Debug("relay_move_out_of_turn", zap.String("conn_id", id), zap.String("from", req.From), zap.String("to", req.To))
		if h.notifyOutOfTurn {
			h.sendTo(id, moveRejected(req))
		}
		return
	case errors.Is(err, session.ErrOracleFault):
		h.log.Error("relay_oracle_fault", zap.String("conn_id", id), zap.String("from", req.From), zap.String("to", req.To), zap.Error(err))
		h.sendTo(id, moveRejected(req))
		return
	default:
		h.log.Info("relay_move_rejected", zap.String("conn_id", id), zap.String("from", req.From), zap.String("to", req.To), zap.Error(err))
		h.sendTo(id, moveRejected(req))
		return
	}

	outcome, method := h.sess.Outcome()
	h.log.Info("relay_move_accepted",
		zap.String("session_id", h.sess.ID()),
		zap.String("conn_id", id),
		zap.String("san", rec.SAN),
		zap.String("uci", rec.UCI),
		zap.Int("ply", len(h.sess.History())),
		zap.String("outcome", string(outcome)),
	)
	// 같은 이벤트 안에서 브로드캐스트해야 다른 수가 끼어들지 않는다
	h.broadcast(moveAccepted(rec))
	h.broadcast(stateSync(h.sess))

	snap := h.sess.Snapshot()
	h.dispatch.moveAccepted(MoveEvent{
		SessionID: h.sess.ID(),
		Ply:       len(snap.Log),
		Record:    rec,
		At:        h.now(),
	}, snap)

	if outcome.Decided() {
		h.log.Info("relay_game_over",
			zap.String("session_id", h.sess.ID()),
			zap.String("outcome", string(outcome)),
			zap.String("method", method),
		)
		// 종국 알림은 한 번만
		h.broadcast(gameOver(outcome, method))
		h.dispatch.gameFinished(snap)
	}
}

func (h *Hub) onQuery(id, square string) {
	if _, ok := h.peers[id]; !ok {
		return
	}
	cands, err := h.sess.LegalMoves(square)
	if err != nil {
		h.log.Warn("relay_legal_moves_error", zap.String("conn_id", id), zap.String("square", square), zap.Error(err))
		cands = nil
	}
	h.sendTo(id, legalMoves(cands))
}
