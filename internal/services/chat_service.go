package services

import (
	"context"
	"encoding/json"
	"fmt"

	"chat-realtime/internal/apperrors"
	"chat-realtime/internal/database"
	"chat-realtime/internal/models"
)

// Notifier receives membership and metadata changes so live connections can
// follow persisted chat state. Calls are synchronous.
type Notifier interface {
	NotifyUserAdded(chatID, userID, addedBy string)
	NotifyUserRemoved(chatID, userID, removedBy string)
	NotifyMetadataUpdated(chatID string, metadata json.RawMessage, updatedBy string)
}

type nopNotifier struct{}

func (nopNotifier) NotifyUserAdded(string, string, string)                {}
func (nopNotifier) NotifyUserRemoved(string, string, string)              {}
func (nopNotifier) NotifyMetadataUpdated(string, json.RawMessage, string) {}

type ChatService struct {
	chats    database.ChatRepository
	notifier Notifier
}

func NewChatService(chats database.ChatRepository) *ChatService {
	return &ChatService{chats: chats, notifier: nopNotifier{}}
}

// SetNotifier wires the realtime gateway in once it exists.
func (s *ChatService) SetNotifier(n Notifier) {
	if n == nil {
		n = nopNotifier{}
	}
	s.notifier = n
}

// GetUserChats returns the ids of every chat userID participates in.
func (s *ChatService) GetUserChats(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.chats.ListUserChatIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats for %s: %w", userID, err)
	}
	return ids, nil
}

func (s *ChatService) GetChat(ctx context.Context, chatID string) (*models.Chat, error) {
	return s.chats.GetChatByID(ctx, chatID)
}

func (s *ChatService) AddParticipant(ctx context.Context, chatID, userID, addedBy string) error {
	if userID == "" {
		return apperrors.Validation("userId is required")
	}

	chat, err := s.chats.GetChatByID(ctx, chatID)
	if err != nil {
		return err
	}

	if !chat.IsGroup {
		return apperrors.Validation("cannot add users to direct chats")
	}

	// Check if the user adding has admin permissions
	admin, ok := chat.Participant(addedBy)
	if !ok || !admin.IsAdmin {
		return apperrors.Unauthorized("only chat admins can add participants")
	}

	if chat.HasParticipant(userID) {
		return apperrors.Validation("user is already in this chat")
	}

	if err := s.chats.AddParticipant(ctx, chatID, userID); err != nil {
		return fmt.Errorf("failed to add participant: %w", err)
	}

	s.notifier.NotifyUserAdded(chatID, userID, addedBy)
	return nil
}

func (s *ChatService) RemoveParticipant(ctx context.Context, chatID, userID, removedBy string) error {
	chat, err := s.chats.GetChatByID(ctx, chatID)
	if err != nil {
		return err
	}

	if !chat.IsGroup {
		return apperrors.Validation("cannot remove users from direct chats")
	}

	// A user can remove themselves, or an admin can remove anyone
	if userID != removedBy {
		admin, ok := chat.Participant(removedBy)
		if !ok || !admin.IsAdmin {
			return apperrors.Unauthorized("only chat admins can remove participants")
		}
	}

	target, ok := chat.Participant(userID)
	if !ok {
		return apperrors.NotFound("user is not in this chat")
	}

	if target.IsAdmin && chat.AdminCount() == 1 {
		return apperrors.Validation("cannot remove the last admin from the group chat")
	}

	if err := s.chats.RemoveParticipant(ctx, chatID, userID); err != nil {
		return fmt.Errorf("failed to remove participant: %w", err)
	}

	s.notifier.NotifyUserRemoved(chatID, userID, removedBy)
	return nil
}

func (s *ChatService) UpdateMetadata(ctx context.Context, chatID, userID string, metadata json.RawMessage) (*models.Chat, error) {
	chat, err := s.chats.GetChatByID(ctx, chatID)
	if err != nil {
		return nil, err
	}

	if !chat.HasParticipant(userID) {
		return nil, apperrors.Unauthorized("not a participant of this chat")
	}

	updated, err := s.chats.UpdateMetadata(ctx, chatID, metadata)
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyMetadataUpdated(chatID, metadata, userID)
	return updated, nil
}
