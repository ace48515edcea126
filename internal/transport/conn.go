package transport

import (
	"sync"

	"nhooyr.io/websocket"

	"github.com/park285/chess-relay/pkg/wire"
)

// conn is the hub-facing side of one websocket. The hub only ever queues
// frames; the write loop owns the socket.
type conn struct {
	id   string
	ws   *websocket.Conn
	send chan wire.Envelope

	once   sync.Once
	closed chan struct{}
	mu     sync.Mutex
	reason string
}

func newConn(id string, ws *websocket.Conn, buffer int) *conn {
	if buffer <= 0 {
		buffer = 64
	}
	return &conn{
		id:     id,
		ws:     ws,
		send:   make(chan wire.Envelope, buffer),
		closed: make(chan struct{}),
	}
}

func (c *conn) ID() string { return c.id }

func (c *conn) Send(env wire.Envelope) bool {
	select {
	case <-c.closed:
		return false
	default:
	}
	select {
	case c.send <- env:
		return true
	default:
		return false
	}
}

func (c *conn) Close(reason string) {
	c.once.Do(func() {
		c.mu.Lock()
		c.reason = reason
		c.mu.Unlock()
		close(c.closed)
	})
}

func (c *conn) closeReason() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason
}
