package auth

import (
	"context"
	"sync"
)

// MockVerifier resolves tokens from a static table.
type MockVerifier struct {
	mu    sync.RWMutex
	users map[string]Identity
}

// DefaultMockUsers is the token table served by the "mock" provider.
func DefaultMockUsers() map[string]Identity {
	return map[string]Identity{
		"mock-token-user123": {UserID: "user123", Email: "user123@test.com"},
		"mock-token-user456": {UserID: "user456", Email: "user456@test.com"},
		"mock-token-user789": {UserID: "user789", Email: "user789@test.com"},
	}
}

func NewMockVerifier(users map[string]Identity) *MockVerifier {
	m := &MockVerifier{users: make(map[string]Identity, len(users))}
	for token, id := range users {
		m.users[token] = id
	}
	return m
}

func (m *MockVerifier) VerifyToken(_ context.Context, token string) (*Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.users[token]
	if !ok {
		return nil, invalid("unknown token")
	}
	return &id, nil
}

// AddUser registers token for userID.
func (m *MockVerifier) AddUser(token, userID string) {
	m.mu.Lock()
	m.users[token] = Identity{UserID: userID}
	m.mu.Unlock()
}
