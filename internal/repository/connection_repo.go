package repository

import (
	"context"

	"github.com/mentorhub/MentorHubBack/internal/models"
	"github.com/mentorhub/MentorHubBack/pkg/pairkey"
)

type ConnectionRepository struct {
	db DBTX
}

func NewConnectionRepository(db DBTX) *ConnectionRepository {
	return &ConnectionRepository{db: db}
}

// CreateAccepted inserts the single relationship row for the pair, already
// accepted. Re-creating an existing connection is a no-op beyond refreshing
// updated_at; a blocked row stays blocked.
func (r *ConnectionRepository) CreateAccepted(
	ctx context.Context,
	userID string,
	otherUserID string,
	sessionID *int64,
) (*models.Connection, error) {
	key, err := pairkey.Derive(userID, otherUserID)
	if err != nil {
		return nil, err
	}
	userA, userB := pairkey.Sort(userID, otherUserID)

	query := `
		INSERT INTO connections (pair_key, user_a, user_b, status, session_id)
		VALUES ($1, $2, $3, 'accepted', $4)
		ON CONFLICT (pair_key)
		DO UPDATE SET updated_at = NOW()
		RETURNING pair_key, user_a, user_b, status, session_id, created_at, updated_at
	`

	var connection models.Connection
	err = r.db.QueryRow(ctx, query, key, userA, userB, sessionID).Scan(
		&connection.PairKey,
		&connection.UserA,
		&connection.UserB,
		&connection.Status,
		&connection.SessionID,
		&connection.CreatedAt,
		&connection.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &connection, nil
}

func (r *ConnectionRepository) GetByPair(
	ctx context.Context,
	userID string,
	otherUserID string,
) (*models.Connection, error) {
	key, err := pairkey.Derive(userID, otherUserID)
	if err != nil {
		return nil, err
	}
	return r.GetByKey(ctx, key)
}

func (r *ConnectionRepository) GetByKey(ctx context.Context, key string) (*models.Connection, error) {
	query := `
		SELECT pair_key, user_a, user_b, status, session_id, created_at, updated_at
		FROM connections
		WHERE pair_key = $1
	`

	var connection models.Connection
	err := r.db.QueryRow(ctx, query, key).Scan(
		&connection.PairKey,
		&connection.UserA,
		&connection.UserB,
		&connection.Status,
		&connection.SessionID,
		&connection.CreatedAt,
		&connection.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &connection, nil
}

// ListForUser is the per-user view over the single relationship rows.
func (r *ConnectionRepository) ListForUser(ctx context.Context, userID string) ([]models.Connection, error) {
	query := `
		SELECT pair_key, user_a, user_b, status, session_id, created_at, updated_at
		FROM connections
		WHERE user_a = $1 OR user_b = $1
		ORDER BY updated_at DESC, pair_key
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	connections := make([]models.Connection, 0)
	for rows.Next() {
		var connection models.Connection
		if err := rows.Scan(
			&connection.PairKey,
			&connection.UserA,
			&connection.UserB,
			&connection.Status,
			&connection.SessionID,
			&connection.CreatedAt,
			&connection.UpdatedAt,
		); err != nil {
			return nil, err
		}
		connections = append(connections, connection)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return connections, nil
}

// UpdateStatusIfCurrent transitions the connection status only when the stored
// status still matches expectedStatus. Returns pgx.ErrNoRows when it does not.
func (r *ConnectionRepository) UpdateStatusIfCurrent(
	ctx context.Context,
	key string,
	expectedStatus string,
	nextStatus string,
) (*models.Connection, error) {
	query := `
		UPDATE connections
		SET status = $3, updated_at = NOW()
		WHERE pair_key = $1 AND status = $2
		RETURNING pair_key, user_a, user_b, status, session_id, created_at, updated_at
	`

	var connection models.Connection
	err := r.db.QueryRow(ctx, query, key, expectedStatus, nextStatus).Scan(
		&connection.PairKey,
		&connection.UserA,
		&connection.UserB,
		&connection.Status,
		&connection.SessionID,
		&connection.CreatedAt,
		&connection.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &connection, nil
}
