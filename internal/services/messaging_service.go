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
	ErrNotConnected         = errors.New("users are not connected")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrUnauthorizedSender   = errors.New("sender is not a conversation participant")
)

type connectionChecker interface {
	CheckConnection(ctx context.Context, userID, otherUserID string) (bool, error)
}

type MessagingService struct {
	db               *pgxpool.Pool
	conversationRepo *repository.ConversationRepository
	messageRepo      *repository.MessageRepository
	connections      connectionChecker
}

// ChatDelivery carries everything the websocket hub needs to fan a freshly
// persisted message out to both participants.
type ChatDelivery struct {
	Conversation *models.Conversation
	Message      *models.ChatMessage
	RecipientID  string
}

func NewMessagingService(
	db *pgxpool.Pool,
	conversationRepo *repository.ConversationRepository,
	messageRepo *repository.MessageRepository,
	connections connectionChecker,
) *MessagingService {
	return &MessagingService{
		db:               db,
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		connections:      connections,
	}
}

// CreateConversation opens (or returns) the thread between actorID and
// otherUserID. Requires an accepted connection. Calling it again for the same
// pair returns the same conversation without touching its last-message fields.
func (s *MessagingService) CreateConversation(
	ctx context.Context,
	actorID string,
	otherUserID string,
	sessionID *int64,
) (*models.Conversation, error) {
	if actorID == "" || otherUserID == "" || actorID == otherUserID {
		return nil, ErrInvalidInput
	}

	connected, err := s.connections.CheckConnection(ctx, actorID, otherUserID)
	if err != nil {
		return nil, err
	}
	if !connected {
		return nil, ErrNotConnected
	}

	return s.conversationRepo.CreateOrGet(ctx, actorID, otherUserID, sessionID)
}

func (s *MessagingService) ListConversations(
	ctx context.Context,
	actorID string,
) ([]models.ConversationSummary, error) {
	if actorID == "" {
		return nil, ErrInvalidInput
	}
	return s.conversationRepo.ListForParticipant(ctx, actorID)
}

// SendMessage appends one message and mirrors it onto the conversation's
// last-message columns in a single transaction, so the summary can never
// diverge from the log.
func (s *MessagingService) SendMessage(
	ctx context.Context,
	actorID string,
	pairKey string,
	content string,
	messageType string,
) (*ChatDelivery, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" || pairKey == "" {
		return nil, ErrInvalidInput
	}

	switch messageType {
	case "":
		messageType = models.MessageTypeText
	case models.MessageTypeText, models.MessageTypeFile, models.MessageTypeSystem:
	default:
		return nil, ErrInvalidInput
	}

	conversation, err := s.conversationRepo.GetByKey(ctx, pairKey)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	if !conversation.HasParticipant(actorID) {
		return nil, ErrUnauthorizedSender
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txMessageRepo := repository.NewMessageRepository(tx)
	txConversationRepo := repository.NewConversationRepository(tx)

	message, err := txMessageRepo.Create(ctx, pairKey, actorID, trimmed, messageType)
	if err != nil {
		return nil, err
	}

	if err := txConversationRepo.RecordLastMessage(ctx, pairKey, message); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	conversation.LastMessage = message.Content
	conversation.LastMessageAt = &message.CreatedAt

	return &ChatDelivery{
		Conversation: conversation,
		Message:      message,
		RecipientID:  conversation.Counterpart(actorID),
	}, nil
}

// ListMessages returns a page of the conversation in ascending creation
// order and marks the fetched peer messages as read in the same transaction.
func (s *MessagingService) ListMessages(
	ctx context.Context,
	actorID string,
	pairKey string,
	page int,
	limit int,
) ([]models.ChatMessage, int, error) {
	if pairKey == "" || page <= 0 || limit <= 0 {
		return nil, 0, ErrInvalidInput
	}

	_, err := s.conversationRepo.GetByKeyForParticipant(ctx, pairKey, actorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, ErrConversationNotFound
		}
		return nil, 0, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txMessageRepo := repository.NewMessageRepository(tx)

	messages, total, err := txMessageRepo.ListByConversation(
		ctx,
		pairKey,
		limit,
		(page-1)*limit,
	)
	if err != nil {
		return nil, 0, err
	}

	messageIDs := make([]int64, 0, len(messages))
	for _, message := range messages {
		messageIDs = append(messageIDs, message.ID)
	}

	if err := txMessageRepo.MarkMessagesRead(ctx, messageIDs, actorID); err != nil {
		return nil, 0, err
	}

	for i := range messages {
		if messages[i].SenderID != actorID {
			messages[i].IsRead = true
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, 0, err
	}

	return messages, total, nil
}

// MarkConversationRead flags every peer message in the conversation as read.
func (s *MessagingService) MarkConversationRead(
	ctx context.Context,
	actorID string,
	pairKey string,
) error {
	_, err := s.conversationRepo.GetByKeyForParticipant(ctx, pairKey, actorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrConversationNotFound
		}
		return err
	}
	return s.messageRepo.MarkConversationRead(ctx, pairKey, actorID)
}

func FormatChatTimestamp(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339)
}
