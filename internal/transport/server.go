// Package transport accepts websocket connections and bridges them to the
// relay hub.
package transport

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/chess-relay/internal/relay"
	"github.com/park285/chess-relay/pkg/wire"
)

// Hub is the part of relay.Hub the transport drives.
type Hub interface {
	Join(ctx context.Context, p relay.Peer) error
	Leave(id string)
	SubmitMove(ctx context.Context, id string, req wire.MoveRequest) error
	QueryLegalMoves(ctx context.Context, id, square string) error
}

const pingTimeout = 3 * time.Second

type Server struct {
	hub          Hub
	log          *zap.Logger
	origins      []string
	sendBuffer   int
	readLimit    int64
	pingInterval time.Duration
	writeTimeout time.Duration
}

type Option func(*Server)

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithOriginPatterns sets the host patterns allowed to open a socket from a
// browser. Same-origin requests are always allowed.
func WithOriginPatterns(p ...string) Option {
	return func(s *Server) { s.origins = p }
}

func WithSendBuffer(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.sendBuffer = n
		}
	}
}

func WithReadLimit(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.readLimit = n
		}
	}
}

// WithPingInterval sets how often idle sockets are pinged. A ping that is not
// answered within pingTimeout drops the peer. Zero turns pinging off.
func WithPingInterval(d time.Duration) Option {
	return func(s *Server) {
		if d >= 0 {
			s.pingInterval = d
		}
	}
}

func NewServer(hub Hub, opts ...Option) *Server {
	s := &Server{
		hub:          hub,
		log:          zap.NewNop(),
		sendBuffer:   64,
		readLimit:    4096,
		pingInterval: 30 * time.Second,
		writeTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.origins})
	if err != nil {
		s.log.Warn("ws_accept_error", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}
	ws.SetReadLimit(s.readLimit)

	c := newConn(uuid.NewString(), ws, s.sendBuffer)
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := s.hub.Join(ctx, c); err != nil {
		s.log.Warn("ws_join_error", zap.String("conn_id", c.id), zap.Error(err))
		_ = ws.Close(websocket.StatusTryAgainLater, "relay unavailable")
		return
	}
	s.log.Debug("ws_open", zap.String("conn_id", c.id), zap.String("remote", r.RemoteAddr))

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeLoop(ctx, cancel, c)
	}()

	s.readLoop(ctx, c)
	s.hub.Leave(c.id)
	cancel()
	<-writerDone

	status, reason := websocket.StatusNormalClosure, ""
	if why := c.closeReason(); why != "" {
		status, reason = websocket.StatusGoingAway, why
	}
	_ = ws.Close(status, reason)
	s.log.Debug("ws_closed", zap.String("conn_id", c.id), zap.String("reason", reason))
}

func (s *Server) readLoop(ctx context.Context, c *conn) {
	for {
		typ, data, err := c.ws.Read(ctx)
		if err != nil {
			st := websocket.CloseStatus(err)
			if st != websocket.StatusNormalClosure && st != websocket.StatusGoingAway && !errors.Is(err, context.Canceled) {
				s.log.Debug("ws_read_error", zap.String("conn_id", c.id), zap.Error(err))
			}
			return
		}
		// 잘못된 프레임은 로그만 남기고 연결 유지
		if typ != websocket.MessageText {
			s.log.Warn("ws_malformed", zap.String("conn_id", c.id), zap.String("reason", "binary frame"))
			continue
		}
		frame, err := wire.DecodeFrame(data)
		if err != nil {
			s.log.Warn("ws_malformed", zap.String("conn_id", c.id), zap.Error(err))
			continue
		}
		if err := s.route(ctx, c, frame); err != nil {
			if errors.Is(err, wire.ErrMalformed) {
				s.log.Warn("ws_malformed", zap.String("conn_id", c.id), zap.String("type", frame.Type), zap.Error(err))
				continue
			}
			return
		}
	}
}

func (s *Server) route(ctx context.Context, c *conn, frame wire.Frame) error {
	switch frame.Type {
	case wire.EventSubmitMove:
		req, err := wire.DecodeMoveRequest(frame.Payload)
		if err != nil {
			return err
		}
		return s.hub.SubmitMove(ctx, c.id, req)
	case wire.EventQueryLegalMoves:
		sq, err := wire.DecodeSquareQuery(frame.Payload)
		if err != nil {
			return err
		}
		return s.hub.QueryLegalMoves(ctx, c.id, sq)
	default:
		return wire.MalformedError{Code: "unknown_type", Message: "unknown frame type " + frame.Type}
	}
}

func (s *Server) writeLoop(ctx context.Context, cancel context.CancelFunc, c *conn) {
	// 0이면 nil 채널이라 핑 없음
	var pings <-chan time.Time
	if s.pingInterval > 0 {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		pings = ticker.C
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closed:
			cancel()
			return
		case env := <-c.send:
			wctx, wcancel := context.WithTimeout(ctx, s.writeTimeout)
			err := wsjson.Write(wctx, c.ws, env)
			wcancel()
			if err != nil {
				s.log.Debug("ws_write_error", zap.String("conn_id", c.id), zap.Error(err))
				cancel()
				return
			}
		case <-pings:
			pctx, pcancel := context.WithTimeout(ctx, pingTimeout)
			err := c.ws.Ping(pctx)
			pcancel()
			if err != nil {
				s.log.Debug("ws_ping_error", zap.String("conn_id", c.id), zap.Error(err))
				cancel()
				return
			}
		}
	}
}
