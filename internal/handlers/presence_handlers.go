package handlers

import (
	"net/http"

	"chat-realtime/internal/auth"

	"github.com/gorilla/mux"
)

type PresenceHandlers struct {
	presence PresenceReader
	verifier auth.Verifier
}

func NewPresenceHandlers(presence PresenceReader, verifier auth.Verifier) *PresenceHandlers {
	return &PresenceHandlers{presence: presence, verifier: verifier}
}

// GetPresence handles GET /users/{id}/presence
func (h *PresenceHandlers) GetPresence(w http.ResponseWriter, r *http.Request) {
	if _, ok := authenticate(w, r, h.verifier); !ok {
		return
	}

	p, err := h.presence.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err, "failed to get presence")
		return
	}

	writeJSON(w, http.StatusOK, p)
}
