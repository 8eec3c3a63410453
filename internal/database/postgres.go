package database

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"chat-realtime/internal/apperrors"
	"chat-realtime/internal/models"
	"chat-realtime/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

type PostgresDB struct {
	pool *pgxpool.Pool
}

func NewPostgresDB(databaseURL string) (*PostgresDB, error) {
	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Connected to database successfully")
	return &PostgresDB{pool: pool}, nil
}

// Migrate creates the tables used by the service if they do not exist.
func (db *PostgresDB) Migrate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (db *PostgresDB) Close() error {
	db.pool.Close()
	return nil
}

// Chat Repository Implementation
func (db *PostgresDB) GetChatByID(ctx context.Context, chatID string) (*models.Chat, error) {
	query := `SELECT id, COALESCE(name, ''), is_group, metadata, created_at, updated_at FROM chats WHERE id = $1`

	chat := &models.Chat{}
	var metadata []byte
	err := db.pool.QueryRow(ctx, query, chatID).Scan(
		&chat.ID, &chat.Name, &chat.IsGroup, &metadata, &chat.CreatedAt, &chat.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound(fmt.Sprintf("chat %s not found", chatID))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load chat: %w", err)
	}
	chat.Metadata = metadata

	rows, err := db.pool.Query(ctx,
		`SELECT user_id, is_admin, joined_at FROM chat_participants WHERE chat_id = $1 ORDER BY joined_at`, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to load participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.UserID, &p.IsAdmin, &p.JoinedAt); err != nil {
			return nil, err
		}
		chat.Participants = append(chat.Participants, p)
	}

	return chat, rows.Err()
}

func (db *PostgresDB) ListUserChatIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := db.pool.Query(ctx, `SELECT chat_id FROM chat_participants WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chatIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		chatIDs = append(chatIDs, id)
	}

	return chatIDs, rows.Err()
}

func (db *PostgresDB) AddParticipant(ctx context.Context, chatID, userID string) error {
	query := `
		INSERT INTO chat_participants (chat_id, user_id, is_admin, joined_at) VALUES ($1, $2, false, NOW())
		ON CONFLICT (chat_id, user_id) DO NOTHING`

	_, err := db.pool.Exec(ctx, query, chatID, userID)
	return err
}

func (db *PostgresDB) RemoveParticipant(ctx context.Context, chatID, userID string) error {
	_, err := db.pool.Exec(ctx, `DELETE FROM chat_participants WHERE chat_id = $1 AND user_id = $2`, chatID, userID)
	return err
}

func (db *PostgresDB) UpdateMetadata(ctx context.Context, chatID string, metadata json.RawMessage) (*models.Chat, error) {
	tag, err := db.pool.Exec(ctx, `UPDATE chats SET metadata = $2, updated_at = NOW() WHERE id = $1`, chatID, []byte(metadata))
	if err != nil {
		return nil, fmt.Errorf("failed to update metadata: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperrors.NotFound(fmt.Sprintf("chat %s not found", chatID))
	}

	return db.GetChatByID(ctx, chatID)
}

// Message Repository Implementation
func (db *PostgresDB) CreateMessage(ctx context.Context, msg *models.Message) error {
	query := `
		INSERT INTO messages (id, chat_id, sender_id, content, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING created_at`

	var metadata []byte
	if len(msg.Metadata) > 0 {
		metadata = msg.Metadata
	}

	err := db.pool.QueryRow(ctx, query, msg.ID, msg.ChatID, msg.SenderID, msg.Content, metadata).Scan(&msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	return nil
}

func (db *PostgresDB) GetMessageByID(ctx context.Context, messageID string) (*models.Message, error) {
	query := `SELECT id, chat_id, sender_id, content, metadata, created_at FROM messages WHERE id = $1`

	msg := &models.Message{}
	var metadata []byte
	err := db.pool.QueryRow(ctx, query, messageID).Scan(
		&msg.ID, &msg.ChatID, &msg.SenderID, &msg.Content, &metadata, &msg.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound(fmt.Sprintf("message %s not found", messageID))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load message: %w", err)
	}
	msg.Metadata = metadata

	return msg, nil
}

func (db *PostgresDB) MarkAsRead(ctx context.Context, messageID, userID string) error {
	query := `
		INSERT INTO read_receipts (message_id, user_id, read_at) VALUES ($1, $2, NOW())
		ON CONFLICT (message_id, user_id) DO NOTHING`

	_, err := db.pool.Exec(ctx, query, messageID, userID)
	return err
}

// Presence Repository Implementation
func (db *PostgresDB) UpdateOnlineStatus(ctx context.Context, userID string, isOnline bool) error {
	// Going offline stamps last_online and clears the active chat set.
	query := `
		INSERT INTO user_presence (user_id, is_online, last_online, active_in_chats, updated_at)
		VALUES ($1, $2, CASE WHEN $2 THEN NULL ELSE NOW() END, '{}', NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			is_online       = EXCLUDED.is_online,
			last_online     = CASE WHEN EXCLUDED.is_online THEN user_presence.last_online ELSE NOW() END,
			active_in_chats = CASE WHEN EXCLUDED.is_online THEN user_presence.active_in_chats ELSE '{}' END,
			updated_at      = NOW()`

	_, err := db.pool.Exec(ctx, query, userID, isOnline)
	return err
}

func (db *PostgresDB) UpdateActiveChats(ctx context.Context, userID string, chatIDs []string) error {
	if chatIDs == nil {
		chatIDs = []string{}
	}

	query := `
		INSERT INTO user_presence (user_id, is_online, active_in_chats, updated_at)
		VALUES ($1, false, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET active_in_chats = EXCLUDED.active_in_chats, updated_at = NOW()`

	_, err := db.pool.Exec(ctx, query, userID, chatIDs)
	return err
}

func (db *PostgresDB) GetPresence(ctx context.Context, userID string) (*models.Presence, error) {
	query := `SELECT user_id, is_online, last_online, active_in_chats, updated_at FROM user_presence WHERE user_id = $1`

	p := &models.Presence{}
	err := db.pool.QueryRow(ctx, query, userID).Scan(&p.UserID, &p.IsOnline, &p.LastOnline, &p.ActiveInChats, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return &models.Presence{UserID: userID, ActiveInChats: []string{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load presence: %w", err)
	}

	return p, nil
}
