package database

import (
	"context"
	"encoding/json"

	"chat-realtime/internal/models"
)

type ChatRepository interface {
	GetChatByID(ctx context.Context, chatID string) (*models.Chat, error)
	ListUserChatIDs(ctx context.Context, userID string) ([]string, error)
	AddParticipant(ctx context.Context, chatID, userID string) error
	RemoveParticipant(ctx context.Context, chatID, userID string) error
	UpdateMetadata(ctx context.Context, chatID string, metadata json.RawMessage) (*models.Chat, error)
}

type MessageRepository interface {
	CreateMessage(ctx context.Context, msg *models.Message) error
	GetMessageByID(ctx context.Context, messageID string) (*models.Message, error)
	MarkAsRead(ctx context.Context, messageID, userID string) error
}

type PresenceRepository interface {
	UpdateOnlineStatus(ctx context.Context, userID string, isOnline bool) error
	UpdateActiveChats(ctx context.Context, userID string, chatIDs []string) error
	GetPresence(ctx context.Context, userID string) (*models.Presence, error)
}

type Database interface {
	ChatRepository
	MessageRepository
	PresenceRepository
	Close() error
}
