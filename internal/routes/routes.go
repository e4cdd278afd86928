package routes

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mentorhub/MentorHubBack/internal/config"
	"github.com/mentorhub/MentorHubBack/internal/handlers"
	"github.com/mentorhub/MentorHubBack/internal/middleware"
	"github.com/mentorhub/MentorHubBack/internal/presence"
	"github.com/mentorhub/MentorHubBack/internal/repository"
	"github.com/mentorhub/MentorHubBack/internal/services"
	chatws "github.com/mentorhub/MentorHubBack/internal/websocket"
)

func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool, store presence.Store) {
	userRepo := repository.NewUserRepository(db)
	connectionRepo := repository.NewConnectionRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	sessionRepo := repository.NewSessionRepository(db)

	tracker := presence.NewTracker(store)
	chatHub := chatws.NewHub(tracker)
	go chatHub.Run()

	connectionService := services.NewConnectionService(connectionRepo, userRepo)
	messagingService := services.NewMessagingService(db, conversationRepo, messageRepo, connectionService)
	sessionService := services.NewSessionService(db, sessionRepo, connectionRepo, userRepo)

	authHandler := handlers.NewAuthHandler(userRepo, cfg.JWTSecret)
	connectionHandler := handlers.NewConnectionHandler(connectionService)
	chatHandler := handlers.NewChatHandler(messagingService, chatHub, cfg.JWTSecret)
	presenceHandler := handlers.NewPresenceHandler(tracker)
	sessionHandler := handlers.NewSessionHandler(sessionService)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)

	authProtected := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	connections := authProtected.Group("/connections")
	connections.Get("", connectionHandler.ListConnections)
	connections.Post("", connectionHandler.CreateConnection)
	connections.Get("/check", connectionHandler.CheckConnection)
	connections.Put("/:user/block", connectionHandler.BlockConnection)

	conversations := authProtected.Group("/conversations")
	conversations.Get("", chatHandler.ListConversations)
	conversations.Post("", chatHandler.CreateConversation)
	conversations.Get("/:key/messages", chatHandler.GetMessages)
	conversations.Post("/:key/messages", chatHandler.SendMessage)
	conversations.Put("/:key/read", chatHandler.MarkRead)

	presenceGroup := authProtected.Group("/presence")
	presenceGroup.Get("/:user", presenceHandler.GetStatus)
	presenceGroup.Post("/offline", presenceHandler.GoOffline)

	sessions := authProtected.Group("/sessions")
	sessions.Post("/book", sessionHandler.BookSession)
	sessions.Get("", sessionHandler.ListSessions)
	sessions.Get("/:id", sessionHandler.GetSession)
	sessions.Put("/:id/status", sessionHandler.UpdateStatus)

	api.Use("/v1/ws", chatHandler.WebSocketAuth)
	api.Get("/v1/ws", websocket.New(chatHandler.HandleWebSocket))
}
