package websocket

import "sync"

// hub tracks every live client by connection id.
type hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func newHub() *hub {
	return &hub{clients: make(map[string]*Client)}
}

func (h *hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
}

func (h *hub) remove(connID string) {
	h.mu.Lock()
	delete(h.clients, connID)
	h.mu.Unlock()
}

func (h *hub) get(connID string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[connID]
	return c, ok
}

func (h *hub) all() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	return clients
}

func (h *hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
