package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/mentorhub/MentorHubBack/internal/models"
	"github.com/mentorhub/MentorHubBack/internal/services"
)

type connectionApplicationService interface {
	CreateConnection(ctx context.Context, actorID, otherUserID string, sessionID *int64) (*models.Connection, error)
	CheckConnection(ctx context.Context, userID, otherUserID string) (bool, error)
	ListConnections(ctx context.Context, actorID string) ([]models.Connection, error)
	BlockConnection(ctx context.Context, actorID, otherUserID string) (*models.Connection, error)
}

type ConnectionHandler struct {
	service connectionApplicationService
}

type createConnectionRequest struct {
	UserID    string `json:"user_id"`
	SessionID *int64 `json:"session_id"`
}

func NewConnectionHandler(service connectionApplicationService) *ConnectionHandler {
	return &ConnectionHandler{service: service}
}

func (h *ConnectionHandler) CreateConnection(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req createConnectionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	connection, err := h.service.CreateConnection(c.Context(), userID, req.UserID, req.SessionID)
	if err != nil {
		return mapConnectionError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"connection": connection})
}

func (h *ConnectionHandler) ListConnections(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	connections, err := h.service.ListConnections(c.Context(), userID)
	if err != nil {
		return mapConnectionError(c, err)
	}

	return c.JSON(fiber.Map{"connections": connections})
}

func (h *ConnectionHandler) CheckConnection(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	otherUserID := c.Query("user_id")
	if otherUserID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id query parameter is required"})
	}

	connected, err := h.service.CheckConnection(c.Context(), userID, otherUserID)
	if err != nil {
		return mapConnectionError(c, err)
	}

	return c.JSON(fiber.Map{"connected": connected})
}

func (h *ConnectionHandler) BlockConnection(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	otherUserID := c.Params("user")
	if otherUserID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user id"})
	}

	connection, err := h.service.BlockConnection(c.Context(), userID, otherUserID)
	if err != nil {
		return mapConnectionError(c, err)
	}

	return c.JSON(fiber.Map{"connection": connection})
}

func mapConnectionError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	case errors.Is(err, services.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	case errors.Is(err, services.ErrConnectionBlocked):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Connection is blocked"})
	case errors.Is(err, services.ErrInvalidStateTransition):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Connection changed, retry"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Connection not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process connection request"})
	}
}
