package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mentorhub/MentorHubBack/internal/models"
	"github.com/mentorhub/MentorHubBack/internal/repository"
)

var (
	ErrForbidden              = errors.New("forbidden")
	ErrConflict               = errors.New("conflict")
	ErrInvalidStatus          = errors.New("invalid status")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrInvalidInput           = errors.New("invalid input")
	ErrMentorNotFound         = errors.New("mentor not found")
)

// SessionService schedules mentorship sessions and drives their status state
// machine. Completing a session is what links the two parties: the accepted
// connection row is written in the same transaction as the status change.
type SessionService struct {
	db             *pgxpool.Pool
	sessionRepo    *repository.SessionRepository
	connectionRepo *repository.ConnectionRepository
	userRepo       userReader
}

func NewSessionService(
	db *pgxpool.Pool,
	sessionRepo *repository.SessionRepository,
	connectionRepo *repository.ConnectionRepository,
	userRepo userReader,
) *SessionService {
	return &SessionService{
		db:             db,
		sessionRepo:    sessionRepo,
		connectionRepo: connectionRepo,
		userRepo:       userRepo,
	}
}

type BookSessionInput struct {
	MentorID        string
	ScheduledAt     time.Time
	DurationMinutes int
	Notes           *string
}

func (s *SessionService) BookSession(
	ctx context.Context,
	menteeID string,
	input BookSessionInput,
) (*models.Session, error) {
	if input.MentorID == "" || input.DurationMinutes <= 0 {
		return nil, ErrInvalidInput
	}
	if input.ScheduledAt.Before(time.Now().Add(-1 * time.Minute)) {
		return nil, ErrInvalidInput
	}
	if menteeID == input.MentorID {
		return nil, ErrInvalidInput
	}

	mentor, err := s.userRepo.GetByID(ctx, input.MentorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMentorNotFound
		}
		return nil, err
	}
	if mentor.Role != models.RoleMentor {
		return nil, ErrInvalidInput
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txSessionRepo := repository.NewSessionRepository(tx)

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", input.MentorID); err != nil {
		return nil, err
	}

	hasConflict, err := txSessionRepo.HasConflict(
		ctx,
		input.MentorID,
		input.ScheduledAt.UTC(),
		input.DurationMinutes,
	)
	if err != nil {
		return nil, err
	}
	if hasConflict {
		return nil, ErrConflict
	}

	session, err := txSessionRepo.Create(ctx, repository.CreateSessionInput{
		MenteeID:        menteeID,
		MentorID:        input.MentorID,
		ScheduledAt:     input.ScheduledAt.UTC(),
		DurationMinutes: input.DurationMinutes,
		Notes:           input.Notes,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return session, nil
}

func (s *SessionService) ListSessions(
	ctx context.Context,
	actorID string,
	role string,
	filter repository.SessionListFilter,
) ([]models.Session, error) {
	return s.sessionRepo.List(ctx, repository.SessionListFilter{
		ActorID:   actorID,
		Role:      role,
		Status:    filter.Status,
		Timeframe: filter.Timeframe,
	})
}

func (s *SessionService) GetSession(
	ctx context.Context,
	actorID string,
	role string,
	sessionID int64,
) (*models.Session, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !canAccessSession(role, actorID, session) {
		return nil, ErrForbidden
	}
	return session, nil
}

// UpdateStatus applies a requested transition. Completing a session also
// writes the accepted connection between mentee and mentor, atomically with
// the status change, so a completed session always leaves the pair linked.
func (s *SessionService) UpdateStatus(
	ctx context.Context,
	actorID string,
	role string,
	sessionID int64,
	requestedStatus string,
) (*models.Session, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !canAccessSession(role, actorID, session) {
		return nil, ErrForbidden
	}

	nextStatus, err := normalizeRequestedStatus(requestedStatus)
	if err != nil {
		return nil, err
	}
	if err := validateStatusTransition(role, actorID, session, nextStatus); err != nil {
		return nil, err
	}

	if nextStatus != models.SessionCompleted {
		updated, err := s.sessionRepo.UpdateStatusIfCurrent(ctx, sessionID, session.Status, nextStatus)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrInvalidStateTransition
			}
			return nil, err
		}
		return updated, nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txSessionRepo := repository.NewSessionRepository(tx)
	txConnectionRepo := repository.NewConnectionRepository(tx)

	updated, err := txSessionRepo.UpdateStatusIfCurrent(ctx, sessionID, session.Status, nextStatus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidStateTransition
		}
		return nil, err
	}

	if _, err := txConnectionRepo.CreateAccepted(ctx, updated.MenteeID, updated.MentorID, &updated.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return updated, nil
}

func canAccessSession(role string, actorID string, session *models.Session) bool {
	if role == models.RoleMentee {
		return session.MenteeID == actorID
	}
	if role == models.RoleMentor {
		return session.MentorID == actorID
	}
	return false
}

func normalizeRequestedStatus(status string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "confirm", "confirmed":
		return models.SessionConfirmed, nil
	case "complete", "completed":
		return models.SessionCompleted, nil
	case "cancel", "cancelled", "canceled":
		return models.SessionCancelled, nil
	default:
		return "", ErrInvalidStatus
	}
}

func validateStatusTransition(
	role string,
	actorID string,
	session *models.Session,
	nextStatus string,
) error {
	switch role {
	case models.RoleMentee:
		if session.MenteeID != actorID || nextStatus != models.SessionCancelled {
			return ErrForbidden
		}
		if session.Status == models.SessionCompleted || session.Status == models.SessionCancelled {
			return ErrInvalidStateTransition
		}
		return nil
	case models.RoleMentor:
		if session.MentorID != actorID {
			return ErrForbidden
		}
		switch nextStatus {
		case models.SessionConfirmed:
			if session.Status != models.SessionPending {
				return ErrInvalidStateTransition
			}
		case models.SessionCompleted:
			if session.Status != models.SessionConfirmed {
				return ErrInvalidStateTransition
			}
			sessionEnd := session.ScheduledAt.UTC().Add(time.Duration(session.DurationMinutes) * time.Minute)
			if sessionEnd.After(time.Now().UTC()) {
				return ErrInvalidStateTransition
			}
		case models.SessionCancelled:
			if session.Status == models.SessionCompleted || session.Status == models.SessionCancelled {
				return ErrInvalidStateTransition
			}
		default:
			return ErrInvalidStatus
		}
		return nil
	default:
		return ErrForbidden
	}
}
