package services

import (
	"context"
	"fmt"

	"chat-realtime/internal/models"
	"chat-realtime/internal/presence"
)

// PresenceService performs the presence transitions triggered by socket
// connect and disconnect.
type PresenceService struct {
	store presence.Store
}

func NewPresenceService(store presence.Store) *PresenceService {
	return &PresenceService{store: store}
}

// GoOnline marks userID online and records the chats its connection joined.
func (s *PresenceService) GoOnline(ctx context.Context, userID string, chatIDs []string) error {
	if err := s.store.SetOnline(ctx, userID); err != nil {
		return fmt.Errorf("failed to set %s online: %w", userID, err)
	}
	if err := s.store.SetActiveChats(ctx, userID, chatIDs); err != nil {
		return fmt.Errorf("failed to record active chats for %s: %w", userID, err)
	}
	return nil
}

func (s *PresenceService) GoOffline(ctx context.Context, userID string) error {
	if err := s.store.SetOffline(ctx, userID); err != nil {
		return fmt.Errorf("failed to set %s offline: %w", userID, err)
	}
	return nil
}

func (s *PresenceService) Get(ctx context.Context, userID string) (*models.Presence, error) {
	return s.store.Get(ctx, userID)
}
