package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/mentorhub/MentorHubBack/pkg/utils"
)

// AuthRequired validates the Bearer token and exposes the caller's handle and
// role as the user_id / role locals every protected handler reads.
func AuthRequired(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, found := strings.CutPrefix(c.Get("Authorization"), "Bearer ")
		if !found || token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Bearer token required",
			})
		}

		claims, err := utils.ValidateToken(token, secret)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("role", claims.Role)

		return c.Next()
	}
}
