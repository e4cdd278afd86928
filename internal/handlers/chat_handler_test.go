package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/mentorhub/MentorHubBack/internal/models"
	"github.com/mentorhub/MentorHubBack/internal/presence"
	"github.com/mentorhub/MentorHubBack/internal/services"
	chatws "github.com/mentorhub/MentorHubBack/internal/websocket"
)

type stubChatService struct {
	conversationsResult []models.ConversationSummary
	conversationsErr    error
	createResult        *models.Conversation
	createErr           error
	messagesResult      []models.ChatMessage
	messagesTotal       int
	messagesErr         error
	sendResult          *services.ChatDelivery
	sendErr             error
	markReadErr         error
	lastActorID         string
	lastOtherUserID     string
	lastPairKey         string
	lastContent         string
	lastPage            int
	lastLimit           int
}

func (s *stubChatService) ListConversations(_ context.Context, actorID string) ([]models.ConversationSummary, error) {
	s.lastActorID = actorID
	return s.conversationsResult, s.conversationsErr
}

func (s *stubChatService) CreateConversation(_ context.Context, actorID, otherUserID string, _ *int64) (*models.Conversation, error) {
	s.lastActorID = actorID
	s.lastOtherUserID = otherUserID
	return s.createResult, s.createErr
}

func (s *stubChatService) ListMessages(_ context.Context, actorID, pairKey string, page, limit int) ([]models.ChatMessage, int, error) {
	s.lastActorID = actorID
	s.lastPairKey = pairKey
	s.lastPage = page
	s.lastLimit = limit
	return s.messagesResult, s.messagesTotal, s.messagesErr
}

func (s *stubChatService) SendMessage(_ context.Context, actorID, pairKey, content, _ string) (*services.ChatDelivery, error) {
	s.lastActorID = actorID
	s.lastPairKey = pairKey
	s.lastContent = content
	return s.sendResult, s.sendErr
}

func (s *stubChatService) MarkConversationRead(_ context.Context, actorID, pairKey string) error {
	s.lastActorID = actorID
	s.lastPairKey = pairKey
	return s.markReadErr
}

func newTestHub() *chatws.Hub {
	hub := chatws.NewHub(presence.NewTracker(presence.NewMemoryStore()))
	go hub.Run()
	return hub
}

func newChatTestApp(handler *ChatHandler, userID string) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", userID)
		c.Locals("role", models.RoleMentee)
		return c.Next()
	})
	app.Get("/api/v1/conversations", handler.ListConversations)
	app.Post("/api/v1/conversations", handler.CreateConversation)
	app.Get("/api/v1/conversations/:key/messages", handler.GetMessages)
	app.Post("/api/v1/conversations/:key/messages", handler.SendMessage)
	app.Put("/api/v1/conversations/:key/read", handler.MarkRead)
	return app
}

func TestListConversationsReturnsConversationSummaries(t *testing.T) {
	service := &stubChatService{
		conversationsResult: []models.ConversationSummary{
			{
				Conversation: models.Conversation{PairKey: "alice_bob", UserA: "alice", UserB: "bob"},
				LastMessageDetail: &models.ChatMessage{
					ID:       3,
					PairKey:  "alice_bob",
					SenderID: "bob",
					Content:  "See you tomorrow",
					CreatedAt: time.Date(
						2026, 3, 1, 9, 0, 0, 0, time.UTC),
				},
				UnreadCount: 2,
			},
		},
	}
	handler := NewChatHandler(service, newTestHub(), "secret")
	app := newChatTestApp(handler, "alice")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastActorID != "alice" {
		t.Fatalf("unexpected actor: %q", service.lastActorID)
	}

	var body struct {
		Conversations []models.ConversationSummary `json:"conversations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(body.Conversations) != 1 || body.Conversations[0].UnreadCount != 2 {
		t.Fatalf("unexpected response: %+v", body.Conversations)
	}
}

func TestCreateConversationReturnsCreatedConversation(t *testing.T) {
	service := &stubChatService{
		createResult: &models.Conversation{PairKey: "alice_bob", UserA: "alice", UserB: "bob"},
	}
	handler := NewChatHandler(service, newTestHub(), "secret")
	app := newChatTestApp(handler, "alice")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/conversations", strings.NewReader(`{"user_id":"bob"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if service.lastOtherUserID != "bob" {
		t.Fatalf("expected other user bob, got %q", service.lastOtherUserID)
	}
}

func TestCreateConversationRequiresConnection(t *testing.T) {
	service := &stubChatService{createErr: services.ErrNotConnected}
	handler := NewChatHandler(service, newTestHub(), "secret")
	app := newChatTestApp(handler, "alice")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/conversations", strings.NewReader(`{"user_id":"mallory"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestGetMessagesReturnsPagination(t *testing.T) {
	service := &stubChatService{
		messagesResult: []models.ChatMessage{
			{ID: 5, PairKey: "alice_bob", SenderID: "bob", Content: "Hi", CreatedAt: time.Now().UTC()},
		},
		messagesTotal: 12,
	}
	handler := NewChatHandler(service, newTestHub(), "secret")
	app := newChatTestApp(handler, "alice")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations/alice_bob/messages?page=2&limit=5", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastPairKey != "alice_bob" || service.lastPage != 2 || service.lastLimit != 5 {
		t.Fatalf("unexpected forwarded pagination: key=%q page=%d limit=%d",
			service.lastPairKey, service.lastPage, service.lastLimit)
	}

	var body struct {
		Messages   []models.ChatMessage  `json:"messages"`
		Pagination models.PaginationMeta `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(body.Messages) != 1 || body.Pagination.Total != 12 || body.Pagination.TotalPages != 3 {
		t.Fatalf("unexpected response body: %+v %+v", body.Messages, body.Pagination)
	}
}

func TestGetMessagesReturnsNotFound(t *testing.T) {
	service := &stubChatService{messagesErr: services.ErrConversationNotFound}
	handler := NewChatHandler(service, newTestHub(), "secret")
	app := newChatTestApp(handler, "alice")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations/alice_mallory/messages", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestSendMessageReturnsPersistedMessage(t *testing.T) {
	service := &stubChatService{
		sendResult: &services.ChatDelivery{
			Message: &models.ChatMessage{
				ID:       8,
				PairKey:  "alice_bob",
				SenderID: "alice",
				Content:  "hi bob",
			},
			RecipientID: "bob",
		},
	}
	handler := NewChatHandler(service, newTestHub(), "secret")
	app := newChatTestApp(handler, "alice")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/conversations/alice_bob/messages",
		strings.NewReader(`{"content":"hi bob"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if service.lastPairKey != "alice_bob" || service.lastContent != "hi bob" {
		t.Fatalf("unexpected forwarded send: key=%q content=%q", service.lastPairKey, service.lastContent)
	}

	var body struct {
		Message models.ChatMessage `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if body.Message.ID != 8 || body.Message.Content != "hi bob" {
		t.Fatalf("unexpected message body: %+v", body.Message)
	}
}

func TestSendMessageRejectsNonParticipant(t *testing.T) {
	service := &stubChatService{sendErr: services.ErrUnauthorizedSender}
	handler := NewChatHandler(service, newTestHub(), "secret")
	app := newChatTestApp(handler, "mallory")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/conversations/alice_bob/messages",
		strings.NewReader(`{"content":"let me in"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestMarkReadReturnsNoContent(t *testing.T) {
	service := &stubChatService{}
	handler := NewChatHandler(service, newTestHub(), "secret")
	app := newChatTestApp(handler, "alice")

	req := httptest.NewRequest(http.MethodPut, "/api/v1/conversations/alice_bob/read", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if service.lastPairKey != "alice_bob" {
		t.Fatalf("unexpected pair key: %q", service.lastPairKey)
	}
}
