package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/mentorhub/MentorHubBack/internal/models"
	"github.com/mentorhub/MentorHubBack/internal/repository"
	"github.com/mentorhub/MentorHubBack/pkg/pairkey"
)

var (
	testDBOnce sync.Once
	testDBPool *pgxpool.Pool
	testDBErr  error
)

func TestMessagingServiceConnectedPairFullFlow(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	connections, messaging := newIntegrationServices(pool)

	alice := createTestAccount(t, ctx, pool, models.RoleMentee)
	bob := createTestAccount(t, ctx, pool, models.RoleMentor)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, alice, bob) })

	if _, err := connections.CreateConnection(ctx, alice, bob, nil); err != nil {
		t.Fatalf("CreateConnection: %v", err)
	}

	connected, err := connections.CheckConnection(ctx, alice, bob)
	if err != nil {
		t.Fatalf("CheckConnection: %v", err)
	}
	if !connected {
		t.Fatalf("expected alice and bob to be connected")
	}

	conversation, err := messaging.CreateConversation(ctx, alice, bob, nil)
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	expectedKey, _ := pairkey.Derive(alice, bob)
	if conversation.PairKey != expectedKey {
		t.Fatalf("expected conversation key %q, got %q", expectedKey, conversation.PairKey)
	}

	delivery, err := messaging.SendMessage(ctx, alice, conversation.PairKey, "hi bob", "")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if delivery.RecipientID != bob {
		t.Fatalf("expected recipient %q, got %q", bob, delivery.RecipientID)
	}

	messages, total, err := messaging.ListMessages(ctx, bob, conversation.PairKey, 1, 50)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if total != 1 || len(messages) != 1 {
		t.Fatalf("expected exactly one message, got %d/%d", len(messages), total)
	}
	if messages[0].Content != "hi bob" || messages[0].SenderID != alice {
		t.Fatalf("unexpected message: %+v", messages[0])
	}

	refreshed, err := repository.NewConversationRepository(pool).GetByKey(ctx, conversation.PairKey)
	if err != nil {
		t.Fatalf("GetByKey: %v", err)
	}
	if refreshed.LastMessage != "hi bob" {
		t.Fatalf("expected last_message mirror %q, got %q", "hi bob", refreshed.LastMessage)
	}
}

func TestMessagingServiceCreateConversationIsIdempotent(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	connections, messaging := newIntegrationServices(pool)

	mentee := createTestAccount(t, ctx, pool, models.RoleMentee)
	mentor := createTestAccount(t, ctx, pool, models.RoleMentor)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, mentee, mentor) })

	if _, err := connections.CreateConnection(ctx, mentee, mentor, nil); err != nil {
		t.Fatalf("CreateConnection: %v", err)
	}

	first, err := messaging.CreateConversation(ctx, mentee, mentor, nil)
	if err != nil {
		t.Fatalf("first CreateConversation: %v", err)
	}

	if _, err := messaging.SendMessage(ctx, mentee, first.PairKey, "still here?", ""); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	second, err := messaging.CreateConversation(ctx, mentor, mentee, nil)
	if err != nil {
		t.Fatalf("second CreateConversation: %v", err)
	}
	if second.PairKey != first.PairKey {
		t.Fatalf("expected identical conversation, got %q and %q", first.PairKey, second.PairKey)
	}
	if second.LastMessage != "still here?" {
		t.Fatalf("re-create clobbered last message: %q", second.LastMessage)
	}
}

func TestMessagingServiceRequiresAcceptedConnection(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	_, messaging := newIntegrationServices(pool)

	mentee := createTestAccount(t, ctx, pool, models.RoleMentee)
	mentor := createTestAccount(t, ctx, pool, models.RoleMentor)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, mentee, mentor) })

	_, err := messaging.CreateConversation(ctx, mentee, mentor, nil)
	if err != ErrNotConnected {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestMessagingServiceRejectsOutsideSender(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	connections, messaging := newIntegrationServices(pool)

	mentee := createTestAccount(t, ctx, pool, models.RoleMentee)
	mentor := createTestAccount(t, ctx, pool, models.RoleMentor)
	outsider := createTestAccount(t, ctx, pool, models.RoleMentee)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, mentee, mentor, outsider) })

	if _, err := connections.CreateConnection(ctx, mentee, mentor, nil); err != nil {
		t.Fatalf("CreateConnection: %v", err)
	}
	conversation, err := messaging.CreateConversation(ctx, mentee, mentor, nil)
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	_, err = messaging.SendMessage(ctx, outsider, conversation.PairKey, "let me in", "")
	if err != ErrUnauthorizedSender {
		t.Fatalf("expected ErrUnauthorizedSender, got %v", err)
	}

	_, total, err := messaging.ListMessages(ctx, mentee, conversation.PairKey, 1, 10)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if total != 0 {
		t.Fatalf("rejected send persisted %d message(s)", total)
	}
}

func TestMessagingServiceSendToMissingConversation(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	_, messaging := newIntegrationServices(pool)

	sender := createTestAccount(t, ctx, pool, models.RoleMentee)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, sender) })

	_, err := messaging.SendMessage(ctx, sender, "nobody_noone", "anyone there?", "")
	if err != ErrConversationNotFound {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}

	// Every read path reports the same sentinel for a missing conversation.
	if _, _, err := messaging.ListMessages(ctx, sender, "nobody_noone", 1, 10); err != ErrConversationNotFound {
		t.Fatalf("ListMessages: expected ErrConversationNotFound, got %v", err)
	}
	if err := messaging.MarkConversationRead(ctx, sender, "nobody_noone"); err != ErrConversationNotFound {
		t.Fatalf("MarkConversationRead: expected ErrConversationNotFound, got %v", err)
	}
}

func integrationTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	testDBOnce.Do(func() {
		_ = godotenv.Load(".env")
		_ = godotenv.Load(filepath.Join("..", "..", ".env"))

		dbURL := os.Getenv("DB_URL")
		if dbURL == "" {
			testDBErr = fmt.Errorf("DB_URL is not set")
			return
		}

		cfg, err := pgxpool.ParseConfig(dbURL)
		if err != nil {
			testDBErr = err
			return
		}

		testDBPool, testDBErr = pgxpool.NewWithConfig(context.Background(), cfg)
		if testDBErr != nil {
			return
		}
		testDBErr = testDBPool.Ping(context.Background())
	})

	if testDBErr != nil {
		t.Skipf("skipping integration test: %v", testDBErr)
	}
	return testDBPool
}

func newIntegrationServices(pool *pgxpool.Pool) (*ConnectionService, *MessagingService) {
	userRepo := repository.NewUserRepository(pool)
	connectionRepo := repository.NewConnectionRepository(pool)
	connections := NewConnectionService(connectionRepo, userRepo)
	messaging := NewMessagingService(
		pool,
		repository.NewConversationRepository(pool),
		repository.NewMessageRepository(pool),
		connections,
	)
	return connections, messaging
}

var testAccountSeq int64

// Handles are capped at 32 chars, so test ids use a short unique suffix.
func createTestAccount(t *testing.T, ctx context.Context, pool *pgxpool.Pool, role string) string {
	t.Helper()

	suffix := fmt.Sprintf("%d-%d", atomic.AddInt64(&testAccountSeq, 1), time.Now().Unix()%1_000_000)
	userRepo := repository.NewUserRepository(pool)
	user := &models.User{
		ID:           fmt.Sprintf("mt-%.3s-%s", role, suffix),
		Email:        fmt.Sprintf("mt-%s@example.com", suffix),
		PasswordHash: "test-hash",
		Role:         role,
	}
	if err := userRepo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser(%s): %v", role, err)
	}
	return user.ID
}

func cleanupTestUsers(t *testing.T, ctx context.Context, pool *pgxpool.Pool, userIDs ...string) {
	t.Helper()

	for _, userID := range userIDs {
		if _, err := pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID); err != nil {
			t.Errorf("cleanup user %s: %v", userID, err)
		}
	}
}
