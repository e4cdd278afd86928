package repository

import (
	"context"

	"github.com/mentorhub/MentorHubBack/internal/models"
)

type MessageRepository struct {
	db DBTX
}

func NewMessageRepository(db DBTX) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(
	ctx context.Context,
	pairKey string,
	senderID string,
	content string,
	messageType string,
) (*models.ChatMessage, error) {
	query := `
		INSERT INTO messages (pair_key, sender_id, content, message_type, is_read)
		VALUES ($1, $2, $3, $4, FALSE)
		RETURNING id, pair_key, sender_id, content, message_type, is_read, created_at
	`

	var message models.ChatMessage
	err := r.db.QueryRow(ctx, query, pairKey, senderID, content, messageType).Scan(
		&message.ID,
		&message.PairKey,
		&message.SenderID,
		&message.Content,
		&message.MessageType,
		&message.IsRead,
		&message.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &message, nil
}

// ListByConversation returns messages in ascending creation order. The serial
// id breaks ties between rows that share a created_at timestamp.
func (r *MessageRepository) ListByConversation(
	ctx context.Context,
	pairKey string,
	limit int,
	offset int,
) ([]models.ChatMessage, int, error) {
	totalQuery := `
		SELECT COUNT(*)
		FROM messages
		WHERE pair_key = $1
	`

	var total int
	if err := r.db.QueryRow(ctx, totalQuery, pairKey).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, pair_key, sender_id, content, message_type, is_read, created_at
		FROM messages
		WHERE pair_key = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, pairKey, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	messages := make([]models.ChatMessage, 0)
	for rows.Next() {
		var message models.ChatMessage
		if err := rows.Scan(
			&message.ID,
			&message.PairKey,
			&message.SenderID,
			&message.Content,
			&message.MessageType,
			&message.IsRead,
			&message.CreatedAt,
		); err != nil {
			return nil, 0, err
		}

		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return messages, total, nil
}

func (r *MessageRepository) MarkConversationRead(
	ctx context.Context,
	pairKey string,
	readerID string,
) error {
	_, err := r.db.Exec(ctx, `
		UPDATE messages
		SET is_read = TRUE
		WHERE pair_key = $1
		  AND sender_id <> $2
		  AND is_read = FALSE
	`, pairKey, readerID)
	return err
}

func (r *MessageRepository) MarkMessagesRead(
	ctx context.Context,
	messageIDs []int64,
	readerID string,
) error {
	if len(messageIDs) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx, `
		UPDATE messages
		SET is_read = TRUE
		WHERE id = ANY($1)
		  AND sender_id <> $2
		  AND is_read = FALSE
	`, messageIDs, readerID)
	return err
}
