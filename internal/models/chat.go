package models

import "time"

const (
	MessageTypeText   = "text"
	MessageTypeFile   = "file"
	MessageTypeSystem = "system"
)

// Conversation is the single thread between two connected users, keyed by the
// same pair key as their connection.
type Conversation struct {
	PairKey       string     `json:"pair_key"`
	UserA         string     `json:"user_a"`
	UserB         string     `json:"user_b"`
	SessionID     *int64     `json:"session_id,omitempty"`
	LastMessage   string     `json:"last_message"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	IsActive      bool       `json:"is_active"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (c *Conversation) Counterpart(userID string) string {
	if c.UserA == userID {
		return c.UserB
	}
	return c.UserA
}

func (c *Conversation) HasParticipant(userID string) bool {
	return c.UserA == userID || c.UserB == userID
}

type ChatMessage struct {
	ID          int64     `json:"id"`
	PairKey     string    `json:"pair_key"`
	SenderID    string    `json:"sender_id"`
	Content     string    `json:"content"`
	MessageType string    `json:"message_type"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}

type ConversationSummary struct {
	Conversation
	LastMessageDetail *ChatMessage `json:"last_message_detail,omitempty"`
	UnreadCount       int          `json:"unread_count"`
}
