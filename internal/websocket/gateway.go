// Package websocket is the realtime core: it authenticates socket
// connections, keeps the user and room indexes, dispatches inbound events and
// fans domain events out to live connections.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"chat-realtime/internal/auth"
	"chat-realtime/internal/config"
	"chat-realtime/internal/models"
	"chat-realtime/pkg/logger"

	"github.com/gorilla/websocket"
)

// ChatLookup lists the chats a user participates in.
type ChatLookup interface {
	GetUserChats(ctx context.Context, userID string) ([]string, error)
}

// MessageSender persists messages and read receipts.
type MessageSender interface {
	SendMessage(ctx context.Context, chatID, senderID, content string, metadata json.RawMessage) (*models.Message, error)
	MarkAsRead(ctx context.Context, messageID, userID string) (string, error)
}

// PresenceTracker records online state.
type PresenceTracker interface {
	GoOnline(ctx context.Context, userID string, chatIDs []string) error
	GoOffline(ctx context.Context, userID string) error
}

const sessionReplacedMessage = "session replaced"

type Gateway struct {
	verifier auth.Verifier
	chats    ChatLookup
	messages MessageSender
	presence PresenceTracker
	cfg      config.WebSocketConfig

	registry  *Registry
	rooms     *Rooms
	hub       *hub
	broadcast *Broadcaster
	handlers  map[models.EventType]handler

	upgrader websocket.Upgrader
	// Parent of every operation context. Never cancelled by a disconnect.
	baseCtx context.Context

	// pumps counts running read pumps; each one ends with the close sequence.
	mu      sync.Mutex
	closing bool
	pumps   sync.WaitGroup
}

func NewGateway(verifier auth.Verifier, chats ChatLookup, messages MessageSender, presence PresenceTracker, cfg config.WebSocketConfig) *Gateway {
	g := &Gateway{
		verifier: verifier,
		chats:    chats,
		messages: messages,
		presence: presence,
		cfg:      withDefaults(cfg),
		registry: NewRegistry(),
		rooms:    NewRooms(),
		hub:      newHub(),
		baseCtx:  context.Background(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	g.broadcast = NewBroadcaster(g.registry, g.rooms, g.hub)
	g.handlers = g.dispatchTable()
	return g
}

func withDefaults(cfg config.WebSocketConfig) config.WebSocketConfig {
	if cfg.PongWait <= 0 {
		cfg.PongWait = 60 * time.Second
	}
	if cfg.PingInterval <= 0 || cfg.PingInterval >= cfg.PongWait {
		cfg.PingInterval = cfg.PongWait * 9 / 10
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = 10 * time.Second
	}
	if cfg.SendBufferSize <= 0 {
		cfg.SendBufferSize = 256
	}
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = 10 * time.Second
	}
	return cfg
}

func (g *Gateway) Registry() *Registry       { return g.registry }
func (g *Gateway) Rooms() *Rooms             { return g.rooms }
func (g *Gateway) Broadcaster() *Broadcaster { return g.broadcast }

// ConnectionCount returns the number of live connections.
func (g *Gateway) ConnectionCount() int {
	return g.hub.count()
}

// ServeWS authenticates the handshake, upgrades the connection and runs the
// connect sequence. Authentication happens before the upgrade so a rejected
// client never touches the registry.
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := auth.HandshakeToken(r)
	if token == "" {
		logger.L().Debug().Str("remote", r.RemoteAddr).Msg("Rejected socket without token")
		http.Error(w, "authentication error", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), g.cfg.OperationTimeout)
	identity, err := g.verifier.VerifyToken(ctx, token)
	cancel()
	if err != nil {
		logger.L().Info().Err(err).Str("remote", r.RemoteAddr).Msg("Rejected socket with invalid token")
		http.Error(w, "authentication error", http.StatusUnauthorized)
		return
	}

	if !g.trackPump() {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.pumps.Done()
		logger.L().Error().Err(err).Str("user_id", identity.UserID).Msg("WebSocket upgrade failed")
		return
	}

	client := newClient(g, conn, identity.UserID, g.cfg)
	client.setState(StateAuthenticated)
	g.connect(client)
	// Shutdown may have snapshotted the hub before this client was added.
	if g.isClosing() {
		client.Close()
	}

	go client.WritePump()
	go func() {
		defer g.pumps.Done()
		client.ReadPump()
	}()
}

func (g *Gateway) trackPump() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closing {
		return false
	}
	g.pumps.Add(1)
	return true
}

func (g *Gateway) isClosing() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closing
}

// connect registers an authenticated client, joins its chat rooms, marks the
// user online and announces it to everyone.
func (g *Gateway) connect(c *Client) {
	log := logger.L().With().Str("user_id", c.userID).Str("conn_id", c.id).Logger()

	g.hub.add(c)
	if prev := g.registry.Register(c.userID, c.id); prev != "" {
		g.supersede(prev)
	}

	ctx, cancel := g.operationContext()
	defer cancel()

	chatIDs, err := g.chats.GetUserChats(ctx, c.userID)
	if err != nil {
		log.Error().Err(err).Msg("Error loading user chats")
		c.sendError("failed to load chats")
		chatIDs = nil
	}
	for _, chatID := range chatIDs {
		g.rooms.Join(chatID, c.id)
	}

	if err := g.presence.GoOnline(ctx, c.userID, chatIDs); err != nil {
		log.Error().Err(err).Msg("Error setting user online")
	}

	c.setState(StateActive)
	g.broadcast.ToAll(models.EventUserStatusChanged, models.UserStatusPayload{UserID: c.userID, IsOnline: true})

	log.Info().Int("chats", len(chatIDs)).Msg("User connected")
}

// supersede closes a connection replaced by a newer login of the same user.
func (g *Gateway) supersede(connID string) {
	old, ok := g.hub.get(connID)
	if !ok {
		return
	}
	logger.L().Info().Str("user_id", old.userID).Str("conn_id", connID).Msg("Closing superseded connection")
	old.sendError(sessionReplacedMessage)
	old.Close()
}

// disconnect runs the close sequence once per client. It always completes:
// it uses its own context and never returns early on presence errors.
func (g *Gateway) disconnect(c *Client) {
	if !c.markClosed() {
		return
	}
	log := logger.L().With().Str("user_id", c.userID).Str("conn_id", c.id).Logger()

	left := g.rooms.LeaveAll(c.id)
	userID, owned := g.registry.Unregister(c.id)
	g.hub.remove(c.id)
	c.Close()

	if !owned {
		// A newer connection owns the user now; presence stays online.
		log.Info().Int("rooms_left", len(left)).Msg("Superseded connection closed")
		return
	}

	ctx, cancel := g.operationContext()
	defer cancel()

	if err := g.presence.GoOffline(ctx, userID); err != nil {
		log.Error().Err(err).Msg("Error setting user offline")
	}

	// The user may have reconnected while the offline write was in flight.
	// That connection already announced itself, so restore its presence and
	// stay silent.
	if connID, ok := g.registry.Lookup(userID); ok {
		if err := g.presence.GoOnline(ctx, userID, g.rooms.RoomsOf(connID)); err != nil {
			log.Error().Err(err).Msg("Error restoring presence for reconnected user")
		}
		log.Info().Int("rooms_left", len(left)).Str("new_conn_id", connID).Msg("User reconnected during close")
		return
	}

	g.broadcast.ToAll(models.EventUserStatusChanged, models.UserStatusPayload{UserID: userID, IsOnline: false})

	log.Info().Int("rooms_left", len(left)).Msg("User disconnected")
}

// Shutdown refuses new sockets, closes every live connection and waits until
// each read pump has finished its close sequence or ctx is done.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.mu.Lock()
	g.closing = true
	g.mu.Unlock()

	clients := g.hub.all()
	for _, c := range clients {
		c.Close()
	}

	done := make(chan struct{})
	go func() {
		g.pumps.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.L().Info().Int("connections", len(clients)).Msg("Closed live connections")
		return nil
	case <-ctx.Done():
		logger.L().Warn().Int("connections", g.hub.count()).Msg("Shutdown deadline reached with connections still closing")
		return ctx.Err()
	}
}

func (g *Gateway) operationContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(g.baseCtx, g.cfg.OperationTimeout)
}

// NotifyUserAdded announces the new participant to the room, then joins the
// user's live connection so it receives the chat's events from now on.
func (g *Gateway) NotifyUserAdded(chatID, userID, addedBy string) {
	g.broadcast.ToChat(chatID, models.EventUserAdded, models.UserAddedPayload{
		ChatID:  chatID,
		UserID:  userID,
		AddedBy: addedBy,
	})

	if connID, ok := g.registry.Lookup(userID); ok {
		g.joinLive(chatID, connID)
	}
}

// joinLive joins connID to chatID unless the connection started closing, in
// which case its LeaveAll may already have run.
func (g *Gateway) joinLive(chatID, connID string) {
	if !g.rooms.Join(chatID, connID) {
		return
	}
	if c, ok := g.hub.get(connID); !ok || c.State() == StateClosed {
		g.rooms.Leave(chatID, connID)
	}
}

// NotifyUserRemoved announces the removal to the room, the removed user
// included, then takes the user's connection out of the room.
func (g *Gateway) NotifyUserRemoved(chatID, userID, removedBy string) {
	g.broadcast.ToChat(chatID, models.EventUserRemoved, models.UserRemovedPayload{
		ChatID:    chatID,
		UserID:    userID,
		RemovedBy: removedBy,
	})

	if connID, ok := g.registry.Lookup(userID); ok {
		g.rooms.Leave(chatID, connID)
	}
}

func (g *Gateway) NotifyMetadataUpdated(chatID string, metadata json.RawMessage, updatedBy string) {
	g.broadcast.ToChat(chatID, models.EventMetadataUpdated, models.MetadataUpdatedPayload{
		ChatID:    chatID,
		Metadata:  metadata,
		UpdatedBy: updatedBy,
	})
}
