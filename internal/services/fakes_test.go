package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"chat-realtime/internal/apperrors"
	"chat-realtime/internal/models"
)

type memoryDB struct {
	mu       sync.Mutex
	chats    map[string]*models.Chat
	messages map[string]*models.Message
	reads    map[string]map[string]bool
	failNext error
}

func newMemoryDB() *memoryDB {
	return &memoryDB{
		chats:    make(map[string]*models.Chat),
		messages: make(map[string]*models.Message),
		reads:    make(map[string]map[string]bool),
	}
}

func (m *memoryDB) addChat(id string, group bool, participants ...models.Participant) {
	m.chats[id] = &models.Chat{ID: id, IsGroup: group, Participants: participants}
}

func (m *memoryDB) GetChatByID(_ context.Context, chatID string) (*models.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chats[chatID]
	if !ok {
		return nil, apperrors.NotFound(fmt.Sprintf("chat %s not found", chatID))
	}
	cp := *c
	cp.Participants = append([]models.Participant(nil), c.Participants...)
	return &cp, nil
}

func (m *memoryDB) ListUserChatIDs(_ context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, c := range m.chats {
		if c.HasParticipant(userID) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *memoryDB) AddParticipant(_ context.Context, chatID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chats[chatID].Participants = append(m.chats[chatID].Participants, models.Participant{UserID: userID})
	return nil
}

func (m *memoryDB) RemoveParticipant(_ context.Context, chatID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.chats[chatID]
	kept := c.Participants[:0]
	for _, p := range c.Participants {
		if p.UserID != userID {
			kept = append(kept, p)
		}
	}
	c.Participants = kept
	return nil
}

func (m *memoryDB) UpdateMetadata(ctx context.Context, chatID string, metadata json.RawMessage) (*models.Chat, error) {
	m.mu.Lock()
	m.chats[chatID].Metadata = metadata
	m.mu.Unlock()
	return m.GetChatByID(ctx, chatID)
}

func (m *memoryDB) CreateMessage(_ context.Context, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return err
	}
	msg.CreatedAt = time.Now()
	cp := *msg
	m.messages[msg.ID] = &cp
	return nil
}

func (m *memoryDB) GetMessageByID(_ context.Context, messageID string) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[messageID]
	if !ok {
		return nil, apperrors.NotFound(fmt.Sprintf("message %s not found", messageID))
	}
	cp := *msg
	return &cp, nil
}

func (m *memoryDB) MarkAsRead(_ context.Context, messageID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reads[messageID] == nil {
		m.reads[messageID] = make(map[string]bool)
	}
	m.reads[messageID][userID] = true
	return nil
}

type recordedNotification struct {
	kind, chatID, userID, by string
}

type recordingNotifier struct {
	calls []recordedNotification
}

func (r *recordingNotifier) NotifyUserAdded(chatID, userID, addedBy string) {
	r.calls = append(r.calls, recordedNotification{"added", chatID, userID, addedBy})
}

func (r *recordingNotifier) NotifyUserRemoved(chatID, userID, removedBy string) {
	r.calls = append(r.calls, recordedNotification{"removed", chatID, userID, removedBy})
}

func (r *recordingNotifier) NotifyMetadataUpdated(chatID string, _ json.RawMessage, updatedBy string) {
	r.calls = append(r.calls, recordedNotification{"metadata", chatID, "", updatedBy})
}
