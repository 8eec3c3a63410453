package presence

import (
	"context"
	"sync"
	"time"

	"chat-realtime/internal/models"
)

// MemoryStore keeps presence in process memory. Suitable for tests and
// single-node development.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]models.Presence
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]models.Presence),
		now:     time.Now,
	}
}

func (s *MemoryStore) SetOnline(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.records[userID]
	p.UserID = userID
	p.IsOnline = true
	p.UpdatedAt = s.now()
	s.records[userID] = p
	return nil
}

func (s *MemoryStore) SetOffline(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	p := s.records[userID]
	p.UserID = userID
	p.IsOnline = false
	p.LastOnline = &now
	p.ActiveInChats = nil
	p.UpdatedAt = now
	s.records[userID] = p
	return nil
}

func (s *MemoryStore) SetActiveChats(_ context.Context, userID string, chatIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.records[userID]
	p.UserID = userID
	p.ActiveInChats = append([]string(nil), chatIDs...)
	p.UpdatedAt = s.now()
	s.records[userID] = p
	return nil
}

func (s *MemoryStore) Get(_ context.Context, userID string) (*models.Presence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.records[userID]
	if !ok {
		p = models.Presence{UserID: userID}
	}
	p.ActiveInChats = append([]string{}, p.ActiveInChats...)
	return &p, nil
}
