package websocket

import (
	"encoding/json"
	"fmt"

	"chat-realtime/internal/models"
	"chat-realtime/pkg/logger"
)

// connDirectory resolves connection ids to live clients.
type connDirectory interface {
	get(connID string) (*Client, bool)
	all() []*Client
}

// Broadcaster fans events out to live connections. Every event is encoded
// once and enqueued to each recipient without blocking; a recipient whose
// buffer is full misses that event and nobody else is affected.
type Broadcaster struct {
	registry *Registry
	rooms    *Rooms
	conns    connDirectory
}

func NewBroadcaster(registry *Registry, rooms *Rooms, conns connDirectory) *Broadcaster {
	return &Broadcaster{registry: registry, rooms: rooms, conns: conns}
}

// ToChat delivers to every connection in chatID's room and returns how many
// recipients accepted the event.
func (b *Broadcaster) ToChat(chatID string, event models.EventType, payload interface{}) int {
	return b.ToChatExcluding(chatID, event, payload, "")
}

// ToChatExcluding is ToChat without excludeConnID.
func (b *Broadcaster) ToChatExcluding(chatID string, event models.EventType, payload interface{}, excludeConnID string) int {
	members := b.rooms.MembersOf(chatID)
	if len(members) == 0 {
		return 0
	}

	frame, ok := b.encode(event, payload)
	if !ok {
		return 0
	}

	delivered := 0
	for _, connID := range members {
		if connID == excludeConnID {
			continue
		}
		client, ok := b.conns.get(connID)
		if !ok {
			continue
		}
		if b.deliver(client, event, frame) {
			delivered++
		}
	}
	return delivered
}

// ToUser delivers to userID's connection, if it has one.
func (b *Broadcaster) ToUser(userID string, event models.EventType, payload interface{}) bool {
	connID, ok := b.registry.Lookup(userID)
	if !ok {
		return false
	}
	client, ok := b.conns.get(connID)
	if !ok {
		return false
	}

	frame, ok := b.encode(event, payload)
	if !ok {
		return false
	}
	return b.deliver(client, event, frame)
}

// ToAll delivers to every live connection.
func (b *Broadcaster) ToAll(event models.EventType, payload interface{}) int {
	clients := b.conns.all()
	if len(clients) == 0 {
		return 0
	}

	frame, ok := b.encode(event, payload)
	if !ok {
		return 0
	}

	delivered := 0
	for _, client := range clients {
		if b.deliver(client, event, frame) {
			delivered++
		}
	}
	return delivered
}

func (b *Broadcaster) encode(event models.EventType, payload interface{}) ([]byte, bool) {
	frame, err := encodeEvent(event, payload)
	if err != nil {
		logger.L().Error().Err(err).Str("event", string(event)).Msg("Error encoding event")
		return nil, false
	}
	return frame, true
}

func (b *Broadcaster) deliver(client *Client, event models.EventType, frame []byte) bool {
	if client.enqueue(frame) {
		return true
	}
	logger.L().Warn().
		Str("conn_id", client.id).
		Str("user_id", client.userID).
		Str("event", string(event)).
		Msg("Dropped event for slow or closing client")
	return false
}

func encodeEvent(event models.EventType, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", event, err)
	}
	frame, err := json.Marshal(models.Envelope{Event: event, Data: data})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s envelope: %w", event, err)
	}
	return frame, nil
}
