package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/procare/procare_api/internal/kvstore"
)

const maintenanceKey = "maintenance:enabled"

// Maintenance rejects requests with 503 while the maintenance flag is set in
// the shared store, so all instances flip together. Paths in excluded keep
// working — health checks and the admin login used to clear the flag.
func Maintenance(store kvstore.Store, excluded []string, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		for _, p := range excluded {
			if strings.HasPrefix(path, p) {
				return c.Next()
			}
		}

		_, enabled, err := store.Get(c.UserContext(), maintenanceKey)
		if err != nil {
			// Fail open: a flaky store must not turn into a full outage.
			logger.Warn("maintenance flag lookup failed", "error", err)
			return c.Next()
		}
		if enabled {
			return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{
				"message":  "service is under maintenance, please try again later",
				"location": "maintenance",
			})
		}
		return c.Next()
	}
}
