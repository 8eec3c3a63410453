// Package presence holds the durable online/offline record of each user.
package presence

import (
	"context"
	"fmt"

	"chat-realtime/internal/config"
	"chat-realtime/internal/database"
	"chat-realtime/internal/models"
)

// Store persists presence records. Every method is idempotent.
type Store interface {
	SetOnline(ctx context.Context, userID string) error
	// SetOffline flips the user offline, stamps lastOnline and clears the
	// active chat set.
	SetOffline(ctx context.Context, userID string) error
	SetActiveChats(ctx context.Context, userID string, chatIDs []string) error
	Get(ctx context.Context, userID string) (*models.Presence, error)
}

// NewStore builds the backend selected by cfg.Presence.Backend. db is used by
// the postgres backend and may be nil otherwise.
func NewStore(cfg *config.Config, db database.PresenceRepository) (Store, error) {
	switch cfg.Presence.Backend {
	case config.PresenceBackendPostgres, "":
		if db == nil {
			return nil, fmt.Errorf("postgres presence backend requires a database")
		}
		return NewPostgresStore(db), nil
	case config.PresenceBackendRedis:
		store, err := NewRedisStore(RedisConfig{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			KeyTTL:   cfg.Presence.KeyTTL,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.PresenceBackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown presence backend %q", cfg.Presence.Backend)
	}
}

type postgresStore struct {
	repo database.PresenceRepository
}

// NewPostgresStore adapts the presence repository to Store.
func NewPostgresStore(repo database.PresenceRepository) Store {
	return &postgresStore{repo: repo}
}

func (s *postgresStore) SetOnline(ctx context.Context, userID string) error {
	return s.repo.UpdateOnlineStatus(ctx, userID, true)
}

func (s *postgresStore) SetOffline(ctx context.Context, userID string) error {
	return s.repo.UpdateOnlineStatus(ctx, userID, false)
}

func (s *postgresStore) SetActiveChats(ctx context.Context, userID string, chatIDs []string) error {
	return s.repo.UpdateActiveChats(ctx, userID, chatIDs)
}

func (s *postgresStore) Get(ctx context.Context, userID string) (*models.Presence, error) {
	return s.repo.GetPresence(ctx, userID)
}
