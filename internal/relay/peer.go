package relay

import "github.com/park285/chess-relay/pkg/wire"

// Peer is one live connection as seen by the hub.
type Peer interface {
	ID() string
	// Send queues env without blocking. It reports false when the peer's
	// queue is full or already closed.
	Send(env wire.Envelope) bool
	// Close asks the transport to drop the connection.
	Close(reason string)
}
