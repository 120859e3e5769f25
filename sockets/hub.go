package sockets

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
)

const writeDeadline = 5 * time.Second

// Envelope is the wire format for every realtime event, inbound and
// outbound: {"event": "...", "data": {...}}.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex // serializes writes per connection
}

func (c *client) send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// Hub is the registry of live websocket connections keyed by player. A
// player may hold several connections (multiple devices); events go to
// all of them. Implements services.Emitter.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*client]struct{})}
}

func (h *Hub) register(playerID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[playerID] == nil {
		h.clients[playerID] = make(map[*client]struct{})
	}
	h.clients[playerID][c] = struct{}{}
}

// unregister removes one connection and reports whether it was the
// player's last one, i.e. whether they are now fully offline.
func (h *Hub) unregister(playerID string, c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.clients[playerID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, playerID)
			return true
		}
	}
	return false
}

// Connected reports whether the player has at least one live connection.
func (h *Hub) Connected(playerID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[playerID]) > 0
}

// EmitToPlayer pushes one event to every live connection of a player.
// Players with no connection simply miss the event; the durable state
// (challenges, matches) is queryable over the REST API.
func (h *Hub) EmitToPlayer(playerID, event string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		log.Printf("❌ [HUB] marshal %s for %s: %v", event, playerID, err)
		return
	}
	payload, err := json.Marshal(Envelope{Event: event, Data: raw})
	if err != nil {
		log.Printf("❌ [HUB] marshal envelope %s: %v", event, err)
		return
	}

	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients[playerID]))
	for c := range h.clients[playerID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.send(payload); err != nil {
			log.Printf("⚠️ [HUB] write %s to %s failed: %v", event, playerID, err)
		}
	}
}
