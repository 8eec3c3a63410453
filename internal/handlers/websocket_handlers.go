package handlers

import (
	"net/http"

	"chat-realtime/internal/auth"
)

// SocketGateway is the realtime endpoint plus the counters /health reports.
type SocketGateway interface {
	ServeWS(w http.ResponseWriter, r *http.Request)
	ConnectionCount() int
}

type WebSocketHandlers struct {
	gateway  SocketGateway
	verifier auth.Verifier
}

func NewWebSocketHandlers(gateway SocketGateway, verifier auth.Verifier) *WebSocketHandlers {
	return &WebSocketHandlers{gateway: gateway, verifier: verifier}
}

// HandleWebSocket handles GET /ws. The token is verified by the gateway
// before the upgrade.
func (h *WebSocketHandlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	h.gateway.ServeWS(w, r)
}

// Health handles GET /health
func (h *WebSocketHandlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"connections": h.gateway.ConnectionCount(),
	})
}

// Me handles GET /me and echoes the identity behind the bearer token.
func (h *WebSocketHandlers) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := authenticate(w, r, h.verifier)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"userId": user.UserID,
		"email":  user.Email,
	})
}
