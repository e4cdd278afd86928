package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mentorhub/MentorHubBack/internal/presence"
)

type PresenceHandler struct {
	tracker *presence.Tracker
}

func NewPresenceHandler(tracker *presence.Tracker) *PresenceHandler {
	return &PresenceHandler{tracker: tracker}
}

// GetStatus returns the current snapshot; live updates flow over the
// websocket subscription instead.
func (h *PresenceHandler) GetStatus(c *fiber.Ctx) error {
	userID := c.Params("user")
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user id"})
	}

	status, err := h.tracker.Status(userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch status"})
	}

	return c.JSON(fiber.Map{
		"user_id": userID,
		"status":  status,
	})
}

// GoOffline lets a client flip itself offline ahead of socket teardown.
func (h *PresenceHandler) GoOffline(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	if err := h.tracker.SetOffline(userID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update status"})
	}

	return c.SendStatus(fiber.StatusNoContent)
}
