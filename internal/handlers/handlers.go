// Package handlers exposes the REST surface next to the socket endpoint.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"chat-realtime/internal/apperrors"
	"chat-realtime/internal/auth"
	"chat-realtime/internal/models"

	"github.com/rs/zerolog"
)

type ChatManager interface {
	AddParticipant(ctx context.Context, chatID, userID, addedBy string) error
	RemoveParticipant(ctx context.Context, chatID, userID, removedBy string) error
	UpdateMetadata(ctx context.Context, chatID, userID string, metadata json.RawMessage) (*models.Chat, error)
}

type PresenceReader interface {
	Get(ctx context.Context, userID string) (*models.Presence, error)
}

// authenticate resolves the caller from the Authorization header and writes a
// 401 when it cannot.
func authenticate(w http.ResponseWriter, r *http.Request, v auth.Verifier) (*auth.Identity, bool) {
	identity, err := auth.ValidateRequest(r.Context(), v, r)
	if err != nil {
		zerolog.Ctx(r.Context()).Debug().Err(err).Msg("request authentication failed")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return nil, false
	}
	return identity, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status code and a client-safe message.
func writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg(fallback)
	}
	writeJSON(w, status, map[string]string{"error": apperrors.PublicMessage(err, fallback)})
}
