package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mentorhub/MentorHubBack/internal/models"
)

type CreateSessionInput struct {
	MenteeID        string
	MentorID        string
	ScheduledAt     time.Time
	DurationMinutes int
	Notes           *string
}

type SessionListFilter struct {
	ActorID   string
	Role      string
	Status    string
	Timeframe string
}

type SessionRepository struct {
	db DBTX
}

func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(
	ctx context.Context,
	input CreateSessionInput,
) (*models.Session, error) {
	query := `
		INSERT INTO sessions (mentee_id, mentor_id, scheduled_at, duration_min, status, notes)
		VALUES ($1, $2, $3, $4, 'pending', $5)
		RETURNING id, mentee_id, mentor_id, scheduled_at, duration_min, status, notes, created_at, updated_at
	`

	var session models.Session
	err := r.db.QueryRow(
		ctx,
		query,
		input.MenteeID,
		input.MentorID,
		input.ScheduledAt,
		input.DurationMinutes,
		input.Notes,
	).Scan(
		&session.ID,
		&session.MenteeID,
		&session.MentorID,
		&session.ScheduledAt,
		&session.DurationMinutes,
		&session.Status,
		&session.Notes,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) GetByID(ctx context.Context, sessionID int64) (*models.Session, error) {
	query := `
		SELECT id, mentee_id, mentor_id, scheduled_at, duration_min, status, notes, created_at, updated_at
		FROM sessions
		WHERE id = $1
	`
	var session models.Session
	err := r.db.QueryRow(ctx, query, sessionID).Scan(
		&session.ID,
		&session.MenteeID,
		&session.MentorID,
		&session.ScheduledAt,
		&session.DurationMinutes,
		&session.Status,
		&session.Notes,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) HasConflict(
	ctx context.Context,
	mentorID string,
	scheduledAt time.Time,
	durationMinutes int,
) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM sessions
			WHERE mentor_id = $1
			  AND status IN ('pending', 'confirmed')
			  AND scheduled_at < $2 + make_interval(mins => $3)
			  AND scheduled_at + make_interval(mins => duration_min) > $2
		)
	`

	var exists bool
	err := r.db.QueryRow(ctx, query, mentorID, scheduledAt, durationMinutes).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *SessionRepository) List(
	ctx context.Context,
	filter SessionListFilter,
) ([]models.Session, error) {
	conditions := make([]string, 0, 3)
	args := make([]any, 0, 3)

	switch filter.Role {
	case models.RoleMentee:
		args = append(args, filter.ActorID)
		conditions = append(conditions, fmt.Sprintf("mentee_id = $%d", len(args)))
	case models.RoleMentor:
		args = append(args, filter.ActorID)
		conditions = append(conditions, fmt.Sprintf("mentor_id = $%d", len(args)))
	default:
		args = append(args, filter.ActorID)
		conditions = append(conditions, fmt.Sprintf("(mentee_id = $%d OR mentor_id = $%d)", len(args), len(args)))
	}

	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	switch filter.Timeframe {
	case "upcoming":
		conditions = append(conditions, "scheduled_at >= NOW()")
	case "past":
		conditions = append(conditions, "scheduled_at < NOW()")
	}

	query := `
		SELECT id, mentee_id, mentor_id, scheduled_at, duration_min, status, notes, created_at, updated_at
		FROM sessions
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY scheduled_at DESC, id DESC
	`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]models.Session, 0)
	for rows.Next() {
		var session models.Session
		if err := rows.Scan(
			&session.ID,
			&session.MenteeID,
			&session.MentorID,
			&session.ScheduledAt,
			&session.DurationMinutes,
			&session.Status,
			&session.Notes,
			&session.CreatedAt,
			&session.UpdatedAt,
		); err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

// UpdateStatusIfCurrent transitions the session only when the stored status
// still matches expectedStatus. Returns pgx.ErrNoRows when it does not.
func (r *SessionRepository) UpdateStatusIfCurrent(
	ctx context.Context,
	sessionID int64,
	expectedStatus string,
	nextStatus string,
) (*models.Session, error) {
	query := `
		UPDATE sessions
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING id, mentee_id, mentor_id, scheduled_at, duration_min, status, notes, created_at, updated_at
	`

	var session models.Session
	err := r.db.QueryRow(ctx, query, sessionID, expectedStatus, nextStatus).Scan(
		&session.ID,
		&session.MenteeID,
		&session.MentorID,
		&session.ScheduledAt,
		&session.DurationMinutes,
		&session.Status,
		&session.Notes,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}
