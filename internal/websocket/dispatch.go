package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"chat-realtime/internal/apperrors"
	"chat-realtime/internal/models"
	"chat-realtime/pkg/logger"
)

type handlerFunc func(ctx context.Context, c *Client, data json.RawMessage) error

type handler struct {
	handle handlerFunc
	// Sent to the client when the error carries no public message.
	failure string
}

func (g *Gateway) dispatchTable() map[models.EventType]handler {
	return map[models.EventType]handler{
		models.EventJoinChat:    {g.handleJoinChat, "Failed to join chat"},
		models.EventLeaveChat:   {g.handleLeaveChat, "Failed to leave chat"},
		models.EventSendMessage: {g.handleSendMessage, "Failed to send message"},
		models.EventTyping:      {g.handleTyping, "Failed to send typing indicator"},
		models.EventReadMessage: {g.handleReadMessage, "Failed to mark message as read"},
	}
}

// dispatch decodes one inbound frame and runs its handler. Nothing a handler
// does can close the connection: errors and panics become a single error
// event to this client.
func (g *Gateway) dispatch(c *Client, raw []byte) {
	if c.State() != StateActive {
		return
	}

	var env models.Envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
		c.sendError("invalid message format")
		return
	}

	h, ok := g.handlers[env.Event]
	if !ok {
		c.sendError(fmt.Sprintf("unknown event: %s", env.Event))
		return
	}

	ctx, cancel := g.operationContext()
	defer cancel()

	if err := safeCall(ctx, h.handle, c, env.Data); err != nil {
		logger.L().Error().
			Err(err).
			Str("user_id", c.userID).
			Str("conn_id", c.id).
			Str("event", string(env.Event)).
			Msg("Error handling event")
		c.sendError(apperrors.PublicMessage(err, h.failure))
	}
}

func safeCall(ctx context.Context, fn handlerFunc, c *Client, data json.RawMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: handler panic: %v", apperrors.ErrInternal, r)
		}
	}()
	return fn(ctx, c, data)
}

func (g *Gateway) handleJoinChat(_ context.Context, c *Client, data json.RawMessage) error {
	chatID, err := decodeID(data, "chatId")
	if err != nil {
		return err
	}
	if g.rooms.Join(chatID, c.id) {
		logger.L().Debug().Str("user_id", c.userID).Str("chat_id", chatID).Msg("User joined chat")
	}
	return nil
}

func (g *Gateway) handleLeaveChat(_ context.Context, c *Client, data json.RawMessage) error {
	chatID, err := decodeID(data, "chatId")
	if err != nil {
		return err
	}
	if g.rooms.Leave(chatID, c.id) {
		logger.L().Debug().Str("user_id", c.userID).Str("chat_id", chatID).Msg("User left chat")
	}
	return nil
}

func (g *Gateway) handleSendMessage(ctx context.Context, c *Client, data json.RawMessage) error {
	var payload models.SendMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return apperrors.Validation("invalid send-message payload")
	}

	msg, err := g.messages.SendMessage(ctx, payload.ChatID, c.userID, payload.Content, payload.Metadata)
	if err != nil {
		return err
	}

	g.broadcast.ToChat(msg.ChatID, models.EventNewMessage, msg)
	logger.L().Debug().Str("user_id", c.userID).Str("chat_id", msg.ChatID).Msg("User sent message")
	return nil
}

func (g *Gateway) handleTyping(_ context.Context, c *Client, data json.RawMessage) error {
	chatID, err := decodeID(data, "chatId")
	if err != nil {
		return err
	}
	g.broadcast.ToChatExcluding(chatID, models.EventUserTyping, models.UserTypingPayload{
		UserID: c.userID,
		ChatID: chatID,
	}, c.id)
	return nil
}

func (g *Gateway) handleReadMessage(ctx context.Context, c *Client, data json.RawMessage) error {
	messageID, err := decodeID(data, "messageId")
	if err != nil {
		return err
	}

	chatID, err := g.messages.MarkAsRead(ctx, messageID, c.userID)
	if err != nil {
		return err
	}

	g.broadcast.ToChat(chatID, models.EventMessageRead, models.MessageReadPayload{
		MessageID: messageID,
		UserID:    c.userID,
		ChatID:    chatID,
	})
	return nil
}

// decodeID accepts either a bare JSON string or an object carrying the id
// under key.
func decodeID(data json.RawMessage, key string) (string, error) {
	var id string
	if err := json.Unmarshal(data, &id); err != nil {
		var obj map[string]interface{}
		if err := json.Unmarshal(data, &obj); err != nil {
			return "", apperrors.Validation(key + " is required")
		}
		id, _ = obj[key].(string)
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return "", apperrors.Validation(key + " is required")
	}
	return id, nil
}
