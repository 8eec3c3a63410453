package models

import (
	"encoding/json"
	"time"
)

type Chat struct {
	ID           string          `json:"id"`
	Name         string          `json:"name,omitempty"`
	IsGroup      bool            `json:"isGroup"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	Participants []Participant   `json:"participants"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

type Participant struct {
	UserID   string    `json:"userId"`
	IsAdmin  bool      `json:"isAdmin"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Participant returns the participant entry for userID, if any.
func (c *Chat) Participant(userID string) (Participant, bool) {
	for _, p := range c.Participants {
		if p.UserID == userID {
			return p, true
		}
	}
	return Participant{}, false
}

func (c *Chat) HasParticipant(userID string) bool {
	_, ok := c.Participant(userID)
	return ok
}

func (c *Chat) AdminCount() int {
	n := 0
	for _, p := range c.Participants {
		if p.IsAdmin {
			n++
		}
	}
	return n
}

type Message struct {
	ID        string          `json:"id"`
	ChatID    string          `json:"chatId"`
	SenderID  string          `json:"senderId"`
	Content   string          `json:"content"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

type ReadReceipt struct {
	MessageID string    `json:"messageId"`
	UserID    string    `json:"userId"`
	ReadAt    time.Time `json:"readAt"`
}

// Presence is the durable online record of a user.
type Presence struct {
	UserID        string     `json:"userId"`
	IsOnline      bool       `json:"isOnline"`
	LastOnline    *time.Time `json:"lastOnline"`
	ActiveInChats []string   `json:"activeInChats"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

type AddParticipantRequest struct {
	UserID string `json:"userId"`
}

type UpdateMetadataRequest struct {
	Metadata json.RawMessage `json:"metadata"`
}
