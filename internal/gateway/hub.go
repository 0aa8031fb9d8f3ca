// Package gateway is the dashboard boundary: a WebSocket hub that pushes the
// portfolio summary to connected clients after each refresh, plus the REST
// API. It only ever reads published snapshots — it cannot corrupt engine
// state.
package gateway

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"portfolio-riskv1/internal/model"
)

// Hub manages WebSocket clients and summary fan-out.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	latest  []byte // last summary envelope, replayed to new clients
	seq     int64
}

// NewHub creates a Hub with no clients.
func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]bool)}
}

// BroadcastSummary publishes a fresh summary to every connected client and
// stores it for replay to clients that connect later. Slow clients are
// skipped, not waited on.
func (h *Hub) BroadcastSummary(summary *model.PortfolioSummary, groups []model.PortfolioGroup) {
	h.mu.Lock()
	h.seq++
	env, err := json.Marshal(SummaryEnvelope{
		Type:    "summary",
		Seq:     h.seq,
		TS:      time.Now().UTC().Format(time.RFC3339Nano),
		Summary: summary,
		Groups:  groups,
	})
	if err != nil {
		h.mu.Unlock()
		log.Printf("[gateway] WARNING: summary marshal failed: %v", err)
		return
	}
	h.latest = env
	h.mu.Unlock()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- env:
		default:
		}
	}
}

// HandleWSRequest registers an upgraded connection and starts its pumps.
func (h *Hub) HandleWSRequest(conn *websocket.Conn) {
	client := &Client{
		conn: conn,
		send: make(chan []byte, 64),
		hub:  h,
	}

	conn.EnableWriteCompression(true)

	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	log.Printf("[gateway] ws client connected (%d total)", count)

	go client.sendInitialState()
	go client.writePump()
	go client.readPump()
}

// RemoveClient removes a client from the hub.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Latest returns the most recent summary envelope, nil before the first
// broadcast.
func (h *Hub) Latest() []byte {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest
}

// ClientCount returns the number of connected WS clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
