package models

import "time"

const (
	SessionPending   = "pending"
	SessionConfirmed = "confirmed"
	SessionCompleted = "completed"
	SessionCancelled = "cancelled"
)

// Session is a scheduled mentorship meeting between a mentee and a mentor.
// Completing a session links the two parties with an accepted connection.
type Session struct {
	ID              int64     `json:"id"`
	MenteeID        string    `json:"mentee_id"`
	MentorID        string    `json:"mentor_id"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	DurationMinutes int       `json:"duration_min"`
	Status          string    `json:"status"`
	Notes           *string   `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
