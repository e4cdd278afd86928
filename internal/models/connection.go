package models

import "time"

const (
	ConnectionPending  = "pending"
	ConnectionAccepted = "accepted"
	ConnectionBlocked  = "blocked"
)

// Connection is one accepted relationship between two users, stored as a
// single row keyed by the pair key (UserA < UserB). Per-user listings are
// derived by query rather than by mirroring the row under each participant.
type Connection struct {
	PairKey   string    `json:"pair_key"`
	UserA     string    `json:"user_a"`
	UserB     string    `json:"user_b"`
	Status    string    `json:"status"`
	SessionID *int64    `json:"session_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Counterpart returns the other participant from userID's point of view.
func (c *Connection) Counterpart(userID string) string {
	if c.UserA == userID {
		return c.UserB
	}
	return c.UserA
}

// HasParticipant reports whether userID is one of the two parties.
func (c *Connection) HasParticipant(userID string) bool {
	return c.UserA == userID || c.UserB == userID
}
