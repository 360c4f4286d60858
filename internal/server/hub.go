package server

import (
	"encoding/json"
	"sync"

	"github.com/moonward/lander/internal/logging"
	"github.com/moonward/lander/pkg/wire"
)

// Hub fans broadcast messages out to every connected session. It implements
// the game loop's Broadcaster. The latest scene and phase are cached so a
// session joining mid-round sees the current state immediately.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}

	lastScene  []byte
	lastPhase  []byte
	lastReport []byte

	log *logging.Manager
}

// NewHub creates an empty hub.
func NewHub(log *logging.Manager) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		log:     log,
	}
}

// register adds a session and replays the cached round state to it.
func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}

	for _, cached := range [][]byte{h.lastScene, h.lastPhase, h.lastReport} {
		if cached != nil {
			c.trySend(cached)
		}
	}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}

// ClientCount returns the number of connected sessions.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// broadcast marshals one envelope and queues it on every session. Sessions
// with a full send queue are skipped; a viewer that cannot keep up misses
// frames rather than stalling the loop.
func (h *Hub) broadcast(msgType string, payload any, cache *[]byte) {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		h.log.Logger().Error("Failed to marshal broadcast", "type", msgType, "error", err)
		return
	}

	h.mu.Lock()
	if cache != nil {
		*cache = data
	}
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.trySend(data)
	}
}

// BroadcastScene sends the static round geometry.
func (h *Hub) BroadcastScene(p wire.ScenePayload) {
	h.broadcast(wire.TypeScene, p, &h.lastScene)
	// A fresh scene invalidates the previous round's report.
	h.mu.Lock()
	h.lastReport = nil
	h.mu.Unlock()
}

// BroadcastTick sends one frame of telemetry. Ticks are not cached.
func (h *Hub) BroadcastTick(p wire.TickPayload) {
	h.broadcast(wire.TypeTick, p, nil)
}

// BroadcastPhase announces a phase change.
func (h *Hub) BroadcastPhase(p wire.PhasePayload) {
	h.broadcast(wire.TypePhase, p, &h.lastPhase)
}

// BroadcastReport sends the landing report.
func (h *Hub) BroadcastReport(p wire.ReportPayload) {
	h.broadcast(wire.TypeReport, p, &h.lastReport)
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wire.Envelope{Type: msgType, Payload: raw})
}
