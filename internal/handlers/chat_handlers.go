package handlers

import (
	"encoding/json"
	"net/http"

	"chat-realtime/internal/auth"
	"chat-realtime/internal/models"

	"github.com/gorilla/mux"
)

type ChatHandlers struct {
	chats    ChatManager
	verifier auth.Verifier
}

func NewChatHandlers(chats ChatManager, verifier auth.Verifier) *ChatHandlers {
	return &ChatHandlers{
		chats:    chats,
		verifier: verifier,
	}
}

// AddParticipant handles POST /chats/{id}/participants
func (h *ChatHandlers) AddParticipant(w http.ResponseWriter, r *http.Request) {
	user, ok := authenticate(w, r, h.verifier)
	if !ok {
		return
	}

	var req models.AddParticipantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	chatID := mux.Vars(r)["id"]
	if err := h.chats.AddParticipant(r.Context(), chatID, req.UserID, user.UserID); err != nil {
		writeError(w, r, err, "failed to add participant")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"chatId": chatID,
		"userId": req.UserID,
	})
}

// RemoveParticipant handles DELETE /chats/{id}/participants/{userId}
func (h *ChatHandlers) RemoveParticipant(w http.ResponseWriter, r *http.Request) {
	user, ok := authenticate(w, r, h.verifier)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	if err := h.chats.RemoveParticipant(r.Context(), vars["id"], vars["userId"], user.UserID); err != nil {
		writeError(w, r, err, "failed to remove participant")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UpdateMetadata handles PUT /chats/{id}/metadata
func (h *ChatHandlers) UpdateMetadata(w http.ResponseWriter, r *http.Request) {
	user, ok := authenticate(w, r, h.verifier)
	if !ok {
		return
	}

	var req models.UpdateMetadataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Metadata) == 0 {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	chat, err := h.chats.UpdateMetadata(r.Context(), mux.Vars(r)["id"], user.UserID, req.Metadata)
	if err != nil {
		writeError(w, r, err, "failed to update metadata")
		return
	}

	writeJSON(w, http.StatusOK, chat)
}
