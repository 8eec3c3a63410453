package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"chat-realtime/internal/apperrors"
	"chat-realtime/internal/auth"
	"chat-realtime/internal/config"
	"chat-realtime/internal/models"
	"chat-realtime/internal/presence"
	"chat-realtime/internal/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var testConfig = config.WebSocketConfig{
	PingInterval:     time.Second,
	PongWait:         2 * time.Second,
	WriteWait:        time.Second,
	MaxMessageSize:   64 * 1024,
	SendBufferSize:   32,
	OperationTimeout: 2 * time.Second,
}

type fakeChats struct {
	mu      sync.Mutex
	byUser  map[string][]string
	members map[string][]string
	err     error
}

func newFakeChats() *fakeChats {
	return &fakeChats{byUser: make(map[string][]string), members: make(map[string][]string)}
}

func (f *fakeChats) add(chatID string, userIDs ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range userIDs {
		f.byUser[u] = append(f.byUser[u], chatID)
	}
	f.members[chatID] = append(f.members[chatID], userIDs...)
}

func (f *fakeChats) isMember(chatID, userID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.members[chatID] {
		if u == userID {
			return true
		}
	}
	return false
}

func (f *fakeChats) GetUserChats(_ context.Context, userID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]string(nil), f.byUser[userID]...), nil
}

type fakeMessages struct {
	chats *fakeChats

	mu       sync.Mutex
	messages map[string]*models.Message
	panicOn  string

	// When set, SendMessage signals entered and waits for release.
	entered chan struct{}
	release chan struct{}
}

func newFakeMessages(chats *fakeChats) *fakeMessages {
	return &fakeMessages{chats: chats, messages: make(map[string]*models.Message)}
}

func (f *fakeMessages) SendMessage(_ context.Context, chatID, senderID, content string, metadata json.RawMessage) (*models.Message, error) {
	if content == f.panicOn && f.panicOn != "" {
		panic("boom")
	}
	if f.release != nil {
		f.entered <- struct{}{}
		<-f.release
	}
	if content == "fail" {
		return nil, errors.New("database is down")
	}
	if !f.chats.isMember(chatID, senderID) {
		return nil, apperrors.Unauthorized("you are not a participant in this chat")
	}

	msg := &models.Message{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		SenderID:  senderID,
		Content:   content,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}
	f.mu.Lock()
	f.messages[msg.ID] = msg
	f.mu.Unlock()
	return msg, nil
}

func (f *fakeMessages) MarkAsRead(_ context.Context, messageID, userID string) (string, error) {
	f.mu.Lock()
	msg, ok := f.messages[messageID]
	f.mu.Unlock()
	if !ok {
		return "", apperrors.NotFound("message not found")
	}
	if !f.chats.isMember(msg.ChatID, userID) {
		return "", apperrors.Unauthorized("you are not a participant in this chat")
	}
	return msg.ChatID, nil
}

type fixture struct {
	gateway  *Gateway
	chats    *fakeChats
	messages *fakeMessages
	store    *presence.MemoryStore
	verifier *auth.MockVerifier
}

// heldPresence blocks the first GoOffline call until release is closed.
type heldPresence struct {
	PresenceTracker
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newHeldPresence(inner PresenceTracker) *heldPresence {
	return &heldPresence{
		PresenceTracker: inner,
		entered:         make(chan struct{}),
		release:         make(chan struct{}),
	}
}

func (h *heldPresence) GoOffline(ctx context.Context, userID string) error {
	first := false
	h.once.Do(func() { first = true })
	if first {
		close(h.entered)
		<-h.release
	}
	return h.PresenceTracker.GoOffline(ctx, userID)
}

func newFixture() *fixture {
	return newFixtureWithPresence(nil)
}

// newFixtureWithPresence lets a test wrap the presence tracker.
func newFixtureWithPresence(wrap func(PresenceTracker) PresenceTracker) *fixture {
	chats := newFakeChats()
	messages := newFakeMessages(chats)
	store := presence.NewMemoryStore()
	verifier := auth.NewMockVerifier(nil)

	var tracker PresenceTracker = services.NewPresenceService(store)
	if wrap != nil {
		tracker = wrap(tracker)
	}

	g := NewGateway(verifier, chats, messages, tracker, testConfig)
	return &fixture{gateway: g, chats: chats, messages: messages, store: store, verifier: verifier}
}

// attach runs the connect sequence for a client without a network connection.
func (f *fixture) attach(userID string) *Client {
	c := newClient(f.gateway, nil, userID, f.gateway.cfg)
	c.setState(StateAuthenticated)
	f.gateway.connect(c)
	return c
}

func (f *fixture) send(c *Client, event models.EventType, data interface{}) {
	raw, _ := json.Marshal(data)
	frame, _ := json.Marshal(models.Envelope{Event: event, Data: raw})
	f.gateway.dispatch(c, frame)
}

// drain returns every frame queued for c.
func drain(t *testing.T, c *Client) []models.Envelope {
	t.Helper()
	var out []models.Envelope
	for {
		select {
		case frame := <-c.send:
			var env models.Envelope
			require.NoError(t, json.Unmarshal(frame, &env))
			out = append(out, env)
		default:
			return out
		}
	}
}

func eventsOf(envs []models.Envelope, event models.EventType) []models.Envelope {
	var out []models.Envelope
	for _, e := range envs {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

func decode[T any](t *testing.T, env models.Envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}
