package repository

import (
	"context"
	"database/sql"

	"github.com/mentorhub/MentorHubBack/internal/models"
	"github.com/mentorhub/MentorHubBack/pkg/pairkey"
)

type ConversationRepository struct {
	db DBTX
}

func NewConversationRepository(db DBTX) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// CreateOrGet inserts the conversation for the pair, or returns the existing
// one untouched. The conflict branch only refreshes updated_at, so a repeated
// create never clobbers last-message fields written in between.
func (r *ConversationRepository) CreateOrGet(
	ctx context.Context,
	userID string,
	otherUserID string,
	sessionID *int64,
) (*models.Conversation, error) {
	key, err := pairkey.Derive(userID, otherUserID)
	if err != nil {
		return nil, err
	}
	userA, userB := pairkey.Sort(userID, otherUserID)

	query := `
		INSERT INTO conversations (pair_key, user_a, user_b, session_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (pair_key)
		DO UPDATE SET updated_at = NOW()
		RETURNING pair_key, user_a, user_b, session_id, last_message, last_message_at,
			is_active, created_at, updated_at
	`

	var conversation models.Conversation
	err = r.db.QueryRow(ctx, query, key, userA, userB, sessionID).Scan(
		&conversation.PairKey,
		&conversation.UserA,
		&conversation.UserB,
		&conversation.SessionID,
		&conversation.LastMessage,
		&conversation.LastMessageAt,
		&conversation.IsActive,
		&conversation.CreatedAt,
		&conversation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &conversation, nil
}

func (r *ConversationRepository) GetByKey(ctx context.Context, key string) (*models.Conversation, error) {
	query := `
		SELECT pair_key, user_a, user_b, session_id, last_message, last_message_at,
			is_active, created_at, updated_at
		FROM conversations
		WHERE pair_key = $1
	`

	var conversation models.Conversation
	err := r.db.QueryRow(ctx, query, key).Scan(
		&conversation.PairKey,
		&conversation.UserA,
		&conversation.UserB,
		&conversation.SessionID,
		&conversation.LastMessage,
		&conversation.LastMessageAt,
		&conversation.IsActive,
		&conversation.CreatedAt,
		&conversation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &conversation, nil
}

func (r *ConversationRepository) GetByKeyForParticipant(
	ctx context.Context,
	key string,
	participantID string,
) (*models.Conversation, error) {
	query := `
		SELECT pair_key, user_a, user_b, session_id, last_message, last_message_at,
			is_active, created_at, updated_at
		FROM conversations
		WHERE pair_key = $1 AND (user_a = $2 OR user_b = $2)
	`

	var conversation models.Conversation
	err := r.db.QueryRow(ctx, query, key, participantID).Scan(
		&conversation.PairKey,
		&conversation.UserA,
		&conversation.UserB,
		&conversation.SessionID,
		&conversation.LastMessage,
		&conversation.LastMessageAt,
		&conversation.IsActive,
		&conversation.CreatedAt,
		&conversation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &conversation, nil
}

func (r *ConversationRepository) ListForParticipant(
	ctx context.Context,
	participantID string,
) ([]models.ConversationSummary, error) {
	query := `
		SELECT
			c.pair_key,
			c.user_a,
			c.user_b,
			c.session_id,
			c.last_message,
			c.last_message_at,
			c.is_active,
			c.created_at,
			c.updated_at,
			lm.id,
			lm.sender_id,
			lm.content,
			lm.message_type,
			lm.is_read,
			lm.created_at,
			COALESCE(uc.unread_count, 0)
		FROM conversations c
		LEFT JOIN LATERAL (
			SELECT id, sender_id, content, message_type, is_read, created_at
			FROM messages
			WHERE pair_key = c.pair_key
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		) lm ON TRUE
		LEFT JOIN LATERAL (
			SELECT COUNT(*) AS unread_count
			FROM messages
			WHERE pair_key = c.pair_key
			  AND sender_id <> $1
			  AND is_read = FALSE
		) uc ON TRUE
		WHERE c.user_a = $1 OR c.user_b = $1
		ORDER BY COALESCE(lm.created_at, c.updated_at, c.created_at) DESC, c.pair_key
	`

	rows, err := r.db.Query(ctx, query, participantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]models.ConversationSummary, 0)
	for rows.Next() {
		var summary models.ConversationSummary
		var messageID sql.NullInt64
		var messageSenderID sql.NullString
		var messageContent sql.NullString
		var messageType sql.NullString
		var messageIsRead sql.NullBool
		var messageCreatedAt sql.NullTime

		if err := rows.Scan(
			&summary.PairKey,
			&summary.UserA,
			&summary.UserB,
			&summary.SessionID,
			&summary.LastMessage,
			&summary.LastMessageAt,
			&summary.IsActive,
			&summary.CreatedAt,
			&summary.UpdatedAt,
			&messageID,
			&messageSenderID,
			&messageContent,
			&messageType,
			&messageIsRead,
			&messageCreatedAt,
			&summary.UnreadCount,
		); err != nil {
			return nil, err
		}

		if messageID.Valid {
			summary.LastMessageDetail = &models.ChatMessage{
				ID:          messageID.Int64,
				PairKey:     summary.PairKey,
				SenderID:    messageSenderID.String,
				Content:     messageContent.String,
				MessageType: messageType.String,
				IsRead:      messageIsRead.Bool,
				CreatedAt:   messageCreatedAt.Time,
			}
		}

		summaries = append(summaries, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return summaries, nil
}

// RecordLastMessage mirrors the newest message onto the conversation summary
// columns. Callers run it in the same transaction as the message insert.
func (r *ConversationRepository) RecordLastMessage(
	ctx context.Context,
	key string,
	message *models.ChatMessage,
) error {
	_, err := r.db.Exec(ctx, `
		UPDATE conversations
		SET last_message = $2, last_message_at = $3, updated_at = NOW()
		WHERE pair_key = $1
	`, key, message.Content, message.CreatedAt)
	return err
}
