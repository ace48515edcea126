package relay

import "github.com/park285/chess-relay/pkg/wire"

const reasonSlowConsumer = "send queue full"

// sendTo delivers env to one peer. A peer that cannot take it is dropped and
// false is returned.
func (h *Hub) sendTo(id string, env wire.Envelope) bool {
	p, ok := h.peers[id]
	if !ok {
		return false
	}
	if p.Send(env) {
		return true
	}
	h.drop(id, reasonSlowConsumer)
	return false
}

// broadcast delivers env to every peer, dropping the ones that fall behind.
func (h *Hub) broadcast(env wire.Envelope) {
	var slow []string
	for id, p := range h.peers {
		if !p.Send(env) {
			slow = append(slow, id)
		}
	}
	for _, id := range slow {
		h.drop(id, reasonSlowConsumer)
	}
}
