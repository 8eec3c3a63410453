package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chat-realtime/internal/apperrors"
	"chat-realtime/internal/auth"
	"chat-realtime/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChatManager struct {
	calls []string
	err   error
}

func (f *fakeChatManager) AddParticipant(_ context.Context, chatID, userID, addedBy string) error {
	f.calls = append(f.calls, "add:"+chatID+":"+userID+":"+addedBy)
	return f.err
}

func (f *fakeChatManager) RemoveParticipant(_ context.Context, chatID, userID, removedBy string) error {
	f.calls = append(f.calls, "remove:"+chatID+":"+userID+":"+removedBy)
	return f.err
}

func (f *fakeChatManager) UpdateMetadata(_ context.Context, chatID, userID string, metadata json.RawMessage) (*models.Chat, error) {
	f.calls = append(f.calls, "metadata:"+chatID+":"+userID)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Chat{ID: chatID, IsGroup: true, Metadata: metadata}, nil
}

type fakePresence struct{}

func (fakePresence) Get(_ context.Context, userID string) (*models.Presence, error) {
	return &models.Presence{UserID: userID, IsOnline: true, ActiveInChats: []string{"c1"}}, nil
}

type fakeGateway struct{ served int }

func (f *fakeGateway) ServeWS(w http.ResponseWriter, _ *http.Request) {
	f.served++
	w.WriteHeader(http.StatusSwitchingProtocols)
}

func (f *fakeGateway) ConnectionCount() int { return 3 }

func newTestRouter() (http.Handler, *fakeChatManager, *fakeGateway) {
	verifier := auth.NewMockVerifier(auth.DefaultMockUsers())
	chats := &fakeChatManager{}
	gw := &fakeGateway{}

	rt := Router{
		Chats:     NewChatHandlers(chats, verifier),
		Presence:  NewPresenceHandlers(fakePresence{}, verifier),
		WebSocket: NewWebSocketHandlers(gw, verifier),
	}
	return rt.Handler(), chats, gw
}

func do(h http.Handler, method, path, body string, authed bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if authed {
		req.Header.Set("Authorization", "Bearer mock-token-user123")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h, _, _ := newTestRouter()

	rec := do(h, http.MethodGet, "/health", "", false)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(3), body["connections"])
}

func TestMe(t *testing.T) {
	h, _, _ := newTestRouter()

	assert.Equal(t, http.StatusUnauthorized, do(h, http.MethodGet, "/me", "", false).Code)

	rec := do(h, http.MethodGet, "/me", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"userId":"user123"`)
}

func TestWebSocketRouteDelegatesToGateway(t *testing.T) {
	h, _, gw := newTestRouter()

	do(h, http.MethodGet, "/ws?token=x", "", false)

	assert.Equal(t, 1, gw.served)
}

func TestGetPresence(t *testing.T) {
	h, _, _ := newTestRouter()

	assert.Equal(t, http.StatusUnauthorized, do(h, http.MethodGet, "/users/u1/presence", "", false).Code)

	rec := do(h, http.MethodGet, "/users/u1/presence", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	var p models.Presence
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, "u1", p.UserID)
	assert.True(t, p.IsOnline)
}

func TestAddParticipant(t *testing.T) {
	h, chats, _ := newTestRouter()

	rec := do(h, http.MethodPost, "/chats/c1/participants", `{"userId":"u2"}`, true)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, []string{"add:c1:u2:user123"}, chats.calls)

	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPost, "/chats/c1/participants", `{}`, true).Code)
	assert.Equal(t, http.StatusUnauthorized, do(h, http.MethodPost, "/chats/c1/participants", `{"userId":"u2"}`, false).Code)
}

func TestRemoveParticipant(t *testing.T) {
	h, chats, _ := newTestRouter()

	rec := do(h, http.MethodDelete, "/chats/c1/participants/u2", "", true)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"remove:c1:u2:user123"}, chats.calls)
}

func TestUpdateMetadata(t *testing.T) {
	h, chats, _ := newTestRouter()

	rec := do(h, http.MethodPut, "/chats/c1/metadata", `{"metadata":{"topic":"go"}}`, true)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"metadata:c1:user123"}, chats.calls)
	var chat models.Chat
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &chat))
	assert.JSONEq(t, `{"topic":"go"}`, string(chat.Metadata))
}

func TestServiceErrorsMapToStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"not found", apperrors.NotFound("chat not found"), http.StatusNotFound, "chat not found"},
		{"forbidden", apperrors.Unauthorized("only chat admins can add participants"), http.StatusForbidden, "only chat admins can add participants"},
		{"validation", apperrors.Validation("cannot add users to direct chats"), http.StatusBadRequest, "cannot add users to direct chats"},
		{"internal", errors.New("pq: connection refused"), http.StatusInternalServerError, "failed to add participant"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, chats, _ := newTestRouter()
			chats.err = tt.err

			rec := do(h, http.MethodPost, "/chats/c1/participants", `{"userId":"u2"}`, true)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantMsg, body["error"])
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	h, _, _ := newTestRouter()

	rec := do(h, http.MethodOptions, "/chats/c1/metadata", "", false)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
