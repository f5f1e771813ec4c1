package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/procare/procare_api/internal/auth"
)

// BearerAuth validates the bearer token through the session manager: signature
// first, then the active-session match, then the blacklist. The authorized
// user id and the raw token land in locals for downstream handlers.
func BearerAuth(service *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"message": "missing bearer token", "location": "invalid_token"})
		}
		token := strings.TrimSpace(authz[len("Bearer "):])

		claims, err := service.Authorize(c.UserContext(), token)
		if err != nil {
			var e *auth.Error
			if errors.As(err, &e) {
				return c.Status(e.HTTPStatus()).JSON(fiber.Map{"message": e.Message, "location": e.Location})
			}
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("is_admin", claims.IsAdmin)
		c.Locals("bearer_token", token)
		return c.Next()
	}
}
