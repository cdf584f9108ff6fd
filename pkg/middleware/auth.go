package middleware

import (
	"errors"
	"strings"

	"customs-calc/pkg/auth"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AdminMiddleware admits requests bearing a valid token with the admin role.
func AdminMiddleware(jwtManager *auth.JWTManager, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Get("Authorization")
		if token == "" {
			logger.Warn("Missing authorization token", zap.String("path", c.Path()))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authorization token required",
			})
		}
		token = strings.TrimPrefix(token, "Bearer ")

		claims, err := jwtManager.RequireRole(token, auth.RoleAdmin)
		if errors.Is(err, auth.ErrForbidden) {
			logger.Warn("Token without admin role", zap.String("path", c.Path()))
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Admin role required",
			})
		}
		if err != nil {
			logger.Warn("Invalid token", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		c.Locals("userID", claims.UserID)
		c.Locals("role", claims.Role)

		return c.Next()
	}
}
