package presence

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"chat-realtime/internal/models"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	KeyTTL   time.Duration // zero keeps records forever
}

// RedisStore implements Store using Redis.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStoreWithClient(client, cfg.KeyTTL), nil
}

func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Redis key patterns:
// presence:user:{user_id}         HASH        - is_online, last_online, updated_at (unix seconds)
// presence:user:{user_id}:chats   SET<chat_id> - chats the user is active in

func userKey(userID string) string {
	return fmt.Sprintf("presence:user:%s", userID)
}

func userChatsKey(userID string) string {
	return fmt.Sprintf("presence:user:%s:chats", userID)
}

func (s *RedisStore) SetOnline(ctx context.Context, userID string) error {
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, userKey(userID), map[string]interface{}{
		"is_online":  "true",
		"updated_at": strconv.FormatInt(time.Now().Unix(), 10),
	})
	s.expire(ctx, pipe, userID)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) SetOffline(ctx context.Context, userID string) error {
	now := strconv.FormatInt(time.Now().Unix(), 10)

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, userKey(userID), map[string]interface{}{
		"is_online":   "false",
		"last_online": now,
		"updated_at":  now,
	})
	pipe.Del(ctx, userChatsKey(userID))
	s.expire(ctx, pipe, userID)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) SetActiveChats(ctx context.Context, userID string, chatIDs []string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, userChatsKey(userID))
	if len(chatIDs) > 0 {
		members := make([]interface{}, len(chatIDs))
		for i, id := range chatIDs {
			members[i] = id
		}
		pipe.SAdd(ctx, userChatsKey(userID), members...)
	}
	pipe.HSet(ctx, userKey(userID), "updated_at", strconv.FormatInt(time.Now().Unix(), 10))
	s.expire(ctx, pipe, userID)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Get(ctx context.Context, userID string) (*models.Presence, error) {
	pipe := s.client.TxPipeline()
	hashCmd := pipe.HGetAll(ctx, userKey(userID))
	chatsCmd := pipe.SMembers(ctx, userChatsKey(userID))
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	fields := hashCmd.Val()
	p := &models.Presence{
		UserID:        userID,
		IsOnline:      fields["is_online"] == "true",
		ActiveInChats: chatsCmd.Val(),
	}
	if p.ActiveInChats == nil {
		p.ActiveInChats = []string{}
	}
	if ts, ok := parseUnix(fields["last_online"]); ok {
		p.LastOnline = &ts
	}
	if ts, ok := parseUnix(fields["updated_at"]); ok {
		p.UpdatedAt = ts
	}

	return p, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) expire(ctx context.Context, pipe redis.Pipeliner, userID string) {
	if s.ttl <= 0 {
		return
	}
	pipe.Expire(ctx, userKey(userID), s.ttl)
	pipe.Expire(ctx, userChatsKey(userID), s.ttl)
}

func parseUnix(v string) (time.Time, bool) {
	if v == "" {
		return time.Time{}, false
	}
	secs, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(secs, 0), true
}
