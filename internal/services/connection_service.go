package services

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/mentorhub/MentorHubBack/internal/models"
	"github.com/mentorhub/MentorHubBack/internal/repository"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrConnectionBlocked = errors.New("connection is blocked")
)

type userReader interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// ConnectionService manages the accepted-relationship records that gate
// messaging. A relationship is one row keyed by the pair key; both sides see
// the same row, so checking one side is checking both.
type ConnectionService struct {
	connectionRepo *repository.ConnectionRepository
	userRepo       userReader
}

func NewConnectionService(
	connectionRepo *repository.ConnectionRepository,
	userRepo userReader,
) *ConnectionService {
	return &ConnectionService{
		connectionRepo: connectionRepo,
		userRepo:       userRepo,
	}
}

// CreateConnection links actorID with otherUserID as accepted, optionally
// recording the session that originated the link. Idempotent: re-linking an
// already connected pair returns the existing row. A blocked pair stays
// blocked and is reported as such.
func (s *ConnectionService) CreateConnection(
	ctx context.Context,
	actorID string,
	otherUserID string,
	sessionID *int64,
) (*models.Connection, error) {
	if actorID == "" || otherUserID == "" || actorID == otherUserID {
		return nil, ErrInvalidInput
	}

	if _, err := s.userRepo.GetByID(ctx, otherUserID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	connection, err := s.connectionRepo.CreateAccepted(ctx, actorID, otherUserID, sessionID)
	if err != nil {
		return nil, err
	}
	if connection.Status == models.ConnectionBlocked {
		return nil, ErrConnectionBlocked
	}

	return connection, nil
}

// CheckConnection reports whether the two users hold an accepted connection.
// A missing row reads as not connected, not as an error.
func (s *ConnectionService) CheckConnection(
	ctx context.Context,
	userID string,
	otherUserID string,
) (bool, error) {
	if userID == "" || otherUserID == "" || userID == otherUserID {
		return false, nil
	}

	connection, err := s.connectionRepo.GetByPair(ctx, userID, otherUserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}

	return connection.Status == models.ConnectionAccepted, nil
}

func (s *ConnectionService) ListConnections(
	ctx context.Context,
	actorID string,
) ([]models.Connection, error) {
	return s.connectionRepo.ListForUser(ctx, actorID)
}

// BlockConnection transitions the relationship to blocked. Only a participant
// may block, and blocking an already blocked pair is a no-op.
func (s *ConnectionService) BlockConnection(
	ctx context.Context,
	actorID string,
	otherUserID string,
) (*models.Connection, error) {
	connection, err := s.connectionRepo.GetByPair(ctx, actorID, otherUserID)
	if err != nil {
		return nil, err
	}
	if !connection.HasParticipant(actorID) {
		return nil, ErrForbidden
	}
	if connection.Status == models.ConnectionBlocked {
		return connection, nil
	}

	updated, err := s.connectionRepo.UpdateStatusIfCurrent(
		ctx,
		connection.PairKey,
		connection.Status,
		models.ConnectionBlocked,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidStateTransition
		}
		return nil, err
	}
	return updated, nil
}
