package models

import "encoding/json"

type EventType string

// Client -> server events.
const (
	EventJoinChat    EventType = "join-chat"
	EventLeaveChat   EventType = "leave-chat"
	EventSendMessage EventType = "send-message"
	EventTyping      EventType = "typing"
	EventReadMessage EventType = "read-message"
)

// Server -> client events.
const (
	EventNewMessage        EventType = "new-message"
	EventUserTyping        EventType = "user-typing"
	EventMessageRead       EventType = "message-read"
	EventUserAdded         EventType = "user-added"
	EventUserRemoved       EventType = "user-removed"
	EventMetadataUpdated   EventType = "metadata-updated"
	EventUserStatusChanged EventType = "user-status-changed"
	EventError             EventType = "error"
)

// Envelope is the frame exchanged over the socket in both directions.
type Envelope struct {
	Event EventType       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type SendMessagePayload struct {
	ChatID   string          `json:"chatId"`
	Content  string          `json:"content"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

type UserTypingPayload struct {
	UserID string `json:"userId"`
	ChatID string `json:"chatId"`
}

type MessageReadPayload struct {
	MessageID string `json:"messageId"`
	UserID    string `json:"userId"`
	ChatID    string `json:"chatId"`
}

type UserAddedPayload struct {
	ChatID  string `json:"chatId"`
	UserID  string `json:"userId"`
	AddedBy string `json:"addedBy"`
}

type UserRemovedPayload struct {
	ChatID    string `json:"chatId"`
	UserID    string `json:"userId"`
	RemovedBy string `json:"removedBy"`
}

type MetadataUpdatedPayload struct {
	ChatID    string          `json:"chatId"`
	Metadata  json.RawMessage `json:"metadata"`
	UpdatedBy string          `json:"updatedBy"`
}

type UserStatusPayload struct {
	UserID   string `json:"userId"`
	IsOnline bool   `json:"isOnline"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
