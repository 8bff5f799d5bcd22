package ws

import (
	"encoding/json"
	"sync"

	"tapminer/internal/domain"
	"tapminer/internal/logger"
)

// Hub fans out committed account events to that account's open sockets.
// It implements service.EventPublisher.
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[int64]map[*Client]struct{})}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.AccountID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.AccountID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.AccountID]
	if !ok {
		return
	}
	if _, ok := set[c]; ok {
		delete(set, c)
		close(c.Send)
	}
	if len(set) == 0 {
		delete(h.clients, c.AccountID)
	}
}

// Connections returns the number of open sockets for accountID.
func (h *Hub) Connections(accountID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[accountID])
}

// Publish never blocks: a client whose buffer is full misses the event.
func (h *Hub) Publish(accountID int64, ev domain.Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		logger.Error("ws: marshal event", "error", err, "type", ev.Type)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[accountID] {
		select {
		case c.Send <- msg:
		default:
			logger.Debug("ws: dropped event for slow client", "account_id", accountID, "type", ev.Type)
		}
	}
}
