package handlers

import (
	"net/http"

	"chat-realtime/pkg/logger"

	"github.com/gorilla/mux"
)

type Router struct {
	Chats      *ChatHandlers
	Presence   *PresenceHandlers
	WebSocket  *WebSocketHandlers
	CORSOrigin string
}

// Handler builds the routed handler with request logging and CORS applied.
func (rt Router) Handler() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/health", rt.WebSocket.Health).Methods(http.MethodGet)
	router.HandleFunc("/me", rt.WebSocket.Me).Methods(http.MethodGet)
	router.HandleFunc("/ws", rt.WebSocket.HandleWebSocket).Methods(http.MethodGet)

	router.HandleFunc("/users/{id}/presence", rt.Presence.GetPresence).Methods(http.MethodGet)

	router.HandleFunc("/chats/{id}/participants", rt.Chats.AddParticipant).Methods(http.MethodPost)
	router.HandleFunc("/chats/{id}/participants/{userId}", rt.Chats.RemoveParticipant).Methods(http.MethodDelete)
	router.HandleFunc("/chats/{id}/metadata", rt.Chats.UpdateMetadata).Methods(http.MethodPut)

	// CORS wraps the router so preflight requests never hit method matching.
	return logger.HTTPMiddleware(*logger.L())(corsMiddleware(rt.CORSOrigin)(router))
}

func corsMiddleware(origin string) func(http.Handler) http.Handler {
	if origin == "" {
		origin = "*"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Endpoints lists the routes for the startup banner.
func Endpoints() []string {
	return []string{
		"GET    /health",
		"GET    /me",
		"GET    /ws?token=...",
		"GET    /users/{id}/presence",
		"POST   /chats/{id}/participants",
		"DELETE /chats/{id}/participants/{userId}",
		"PUT    /chats/{id}/metadata",
	}
}
