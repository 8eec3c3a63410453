package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"chat-realtime/internal/apperrors"
	"chat-realtime/internal/database"
	"chat-realtime/internal/models"
)

type MessageService struct {
	chats    database.ChatRepository
	messages database.MessageRepository
}

func NewMessageService(chats database.ChatRepository, messages database.MessageRepository) *MessageService {
	return &MessageService{chats: chats, messages: messages}
}

// SendMessage persists a message from senderID into chatID.
func (s *MessageService) SendMessage(ctx context.Context, chatID, senderID, content string, metadata json.RawMessage) (*models.Message, error) {
	if chatID == "" {
		return nil, apperrors.Validation("chatId is required")
	}
	if strings.TrimSpace(content) == "" {
		return nil, apperrors.Validation("message content is required")
	}

	if err := s.requireParticipant(ctx, chatID, senderID); err != nil {
		return nil, err
	}

	msg := &models.Message{
		ID:       uuid.NewString(),
		ChatID:   chatID,
		SenderID: senderID,
		Content:  content,
		Metadata: metadata,
	}
	if err := s.messages.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	return msg, nil
}

// MarkAsRead records a read receipt and returns the chat the message belongs to.
func (s *MessageService) MarkAsRead(ctx context.Context, messageID, userID string) (string, error) {
	if messageID == "" {
		return "", apperrors.Validation("messageId is required")
	}

	msg, err := s.messages.GetMessageByID(ctx, messageID)
	if err != nil {
		return "", err
	}

	if err := s.requireParticipant(ctx, msg.ChatID, userID); err != nil {
		return "", err
	}

	if err := s.messages.MarkAsRead(ctx, messageID, userID); err != nil {
		return "", fmt.Errorf("failed to mark message as read: %w", err)
	}

	return msg.ChatID, nil
}

func (s *MessageService) requireParticipant(ctx context.Context, chatID, userID string) error {
	chat, err := s.chats.GetChatByID(ctx, chatID)
	if err != nil {
		return err
	}
	if !chat.HasParticipant(userID) {
		return apperrors.Unauthorized("not a participant of this chat")
	}
	return nil
}
