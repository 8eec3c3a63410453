package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chat-realtime/internal/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type liveServer struct {
	*fixture
	srv *httptest.Server
	url string
}

func newLiveServer(t *testing.T) *liveServer {
	t.Helper()
	f := newFixture()
	srv := httptest.NewServer(http.HandlerFunc(f.gateway.ServeWS))
	t.Cleanup(srv.Close)

	return &liveServer{fixture: f, srv: srv, url: "ws" + strings.TrimPrefix(srv.URL, "http")}
}

// dial connects userID and waits until its connect sequence has finished.
func (s *liveServer) dial(t *testing.T, userID string) *websocket.Conn {
	t.Helper()
	token := "token-" + userID
	s.verifier.AddUser(token, userID)

	conn, _, err := websocket.DefaultDialer.Dial(s.url+"?token="+token, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	readEvent(t, conn, models.EventUserStatusChanged, func(env models.Envelope) bool {
		st := decode[models.UserStatusPayload](t, env)
		return st.UserID == userID && st.IsOnline
	})
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn, want models.EventType, match func(models.Envelope) bool) models.Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var env models.Envelope
		require.NoError(t, conn.ReadJSON(&env))
		if env.Event == want && (match == nil || match(env)) {
			return env
		}
	}
}

// expectNone reads until wait elapses and fails on any frame of kind event.
// The connection cannot be read from afterwards.
func expectNone(t *testing.T, conn *websocket.Conn, event models.EventType, wait time.Duration) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(wait))
	for {
		var env models.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			return
		}
		assert.NotEqual(t, event, env.Event, "unexpected %s", event)
	}
}

func TestServeWS_RejectsMissingToken(t *testing.T) {
	s := newLiveServer(t)

	_, resp, err := websocket.DefaultDialer.Dial(s.url, nil)

	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, 0, s.gateway.Registry().Len())
	assert.Equal(t, 0, s.gateway.ConnectionCount())
}

func TestServeWS_RejectsInvalidToken(t *testing.T) {
	s := newLiveServer(t)

	_, resp, err := websocket.DefaultDialer.Dial(s.url+"?token=forged", nil)

	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, 0, s.gateway.Registry().Len())
}

func TestServeWS_AcceptsBearerHeader(t *testing.T) {
	s := newLiveServer(t)
	s.verifier.AddUser("header-token", "alice")

	header := http.Header{"Authorization": {"Bearer header-token"}}
	conn, _, err := websocket.DefaultDialer.Dial(s.url, header)
	require.NoError(t, err)
	defer conn.Close()

	readEvent(t, conn, models.EventUserStatusChanged, nil)
	_, ok := s.gateway.Registry().Lookup("alice")
	assert.True(t, ok)
}

func TestServeWS_MessageReachesOnlyChatMembers(t *testing.T) {
	s := newLiveServer(t)
	s.chats.add("c1", "alice", "bob")

	alice := s.dial(t, "alice")
	bob := s.dial(t, "bob")
	carol := s.dial(t, "carol")

	require.NoError(t, alice.WriteJSON(map[string]interface{}{
		"event": "send-message",
		"data":  map[string]string{"chatId": "c1", "content": "hi"},
	}))

	env := readEvent(t, bob, models.EventNewMessage, nil)
	msg := decode[models.Message](t, env)
	assert.Equal(t, "hi", msg.Content)
	assert.Equal(t, "alice", msg.SenderID)

	readEvent(t, alice, models.EventNewMessage, nil)
	expectNone(t, carol, models.EventNewMessage, 200*time.Millisecond)
}

func TestServeWS_TypingSkipsSender(t *testing.T) {
	s := newLiveServer(t)
	s.chats.add("c1", "alice", "bob")

	alice := s.dial(t, "alice")
	bob := s.dial(t, "bob")

	require.NoError(t, alice.WriteJSON(map[string]interface{}{"event": "typing", "data": "c1"}))

	env := readEvent(t, bob, models.EventUserTyping, nil)
	assert.Equal(t, models.UserTypingPayload{UserID: "alice", ChatID: "c1"}, decode[models.UserTypingPayload](t, env))
	expectNone(t, alice, models.EventUserTyping, 200*time.Millisecond)
}

func TestServeWS_DisconnectGoesOffline(t *testing.T) {
	s := newLiveServer(t)
	s.chats.add("c1", "alice", "bob")

	alice := s.dial(t, "alice")
	bob := s.dial(t, "bob")

	require.NoError(t, alice.Close())

	readEvent(t, bob, models.EventUserStatusChanged, func(env models.Envelope) bool {
		st := decode[models.UserStatusPayload](t, env)
		return st.UserID == "alice" && !st.IsOnline
	})

	_, ok := s.gateway.Registry().Lookup("alice")
	assert.False(t, ok)
	assert.Len(t, s.gateway.Rooms().MembersOf("c1"), 1)

	p, err := s.store.Get(context.Background(), "alice")
	require.NoError(t, err)
	assert.False(t, p.IsOnline)
	assert.Empty(t, p.ActiveInChats)
}

func TestServeWS_SecondLoginReplacesFirst(t *testing.T) {
	s := newLiveServer(t)

	first := s.dial(t, "alice")
	second := s.dial(t, "alice")

	env := readEvent(t, first, models.EventError, nil)
	assert.Equal(t, sessionReplacedMessage, decode[models.ErrorPayload](t, env).Message)

	first.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, _, err := first.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)

	require.NoError(t, second.WriteJSON(map[string]interface{}{"event": "join-chat", "data": "c5"}))
	require.Eventually(t, func() bool {
		return len(s.gateway.Rooms().MembersOf("c5")) == 1
	}, 3*time.Second, 10*time.Millisecond)

	p, _ := s.store.Get(context.Background(), "alice")
	assert.True(t, p.IsOnline)
}

func TestGateway_ShutdownRunsCloseSequences(t *testing.T) {
	s := newLiveServer(t)
	s.chats.add("c1", "alice", "bob")
	s.dial(t, "alice")
	s.dial(t, "bob")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.gateway.Shutdown(ctx))

	assert.Equal(t, 0, s.gateway.ConnectionCount())
	assert.Equal(t, 0, s.gateway.Registry().Len())
	assert.Empty(t, s.gateway.Rooms().MembersOf("c1"))
	for _, user := range []string{"alice", "bob"} {
		p, err := s.store.Get(context.Background(), user)
		require.NoError(t, err)
		assert.False(t, p.IsOnline, "%s still online after shutdown", user)
	}

	s.verifier.AddUser("token-carol", "carol")
	_, resp, err := websocket.DefaultDialer.Dial(s.url+"?token=token-carol", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
