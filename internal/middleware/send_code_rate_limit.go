package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/procare/procare_api/internal/kvstore"
)

// SendCodeRateLimit caps how often a single phone (or, failing that, an IP)
// can hit the code-issuance endpoints within a minute. This sits in front of
// the per-phone resend cooldown the service itself enforces and mainly blunts
// scripted abuse. Fails open on store errors: an unavailable limiter must not
// take authentication down with it.
func SendCodeRateLimit(store kvstore.Store, maxPerMinute int) fiber.Handler {
	if maxPerMinute <= 0 {
		maxPerMinute = 5
	}
	return func(c *fiber.Ctx) error {
		var req struct {
			PhoneMain string `json:"phone_main"`
		}
		_ = c.BodyParser(&req)
		key := strings.TrimSpace(req.PhoneMain)
		if key == "" {
			key = c.IP()
		}

		counterKey := "rl:send_code:burst:" + key
		count, err := store.Incr(c.UserContext(), counterKey)
		if err != nil {
			return c.Next()
		}
		if count == 1 {
			_ = store.Expire(c.UserContext(), counterKey, time.Minute)
		}
		if count > int64(maxPerMinute) {
			return c.Status(http.StatusTooManyRequests).JSON(fiber.Map{
				"message":  "too many requests, try again later",
				"location": "send_code_burst_limit",
			})
		}
		return c.Next()
	}
}
