package middleware

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/procare/procare_api/internal/kvstore"
)

func setupLimiterApp(t *testing.T, maxPerMinute int) (*fiber.App, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	app := fiber.New()
	app.Post("/send-code", SendCodeRateLimit(kvstore.NewRedisStore(cache, "test"), maxPerMinute), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})

	cleanup := func() {
		cache.Close()
		mr.Close()
	}
	return app, mr, cleanup
}

func postSendCode(t *testing.T, app *fiber.App, phone string) int {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/send-code", strings.NewReader(`{"phone_main":"`+phone+`"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func TestSendCodeRateLimitAllowsUnderBurst(t *testing.T) {
	app, _, cleanup := setupLimiterApp(t, 3)
	defer cleanup()

	for i := 0; i < 3; i++ {
		if code := postSendCode(t, app, "+998901234567"); code != fiber.StatusOK {
			t.Fatalf("request %d: expected %d got %d", i+1, fiber.StatusOK, code)
		}
	}
}

func TestSendCodeRateLimitBlocksBurst(t *testing.T) {
	app, _, cleanup := setupLimiterApp(t, 3)
	defer cleanup()

	for i := 0; i < 3; i++ {
		postSendCode(t, app, "+998901234567")
	}

	if code := postSendCode(t, app, "+998901234567"); code != fiber.StatusTooManyRequests {
		t.Fatalf("expected %d got %d", fiber.StatusTooManyRequests, code)
	}

	// Counters are per phone; another number is unaffected.
	if code := postSendCode(t, app, "+998909999999"); code != fiber.StatusOK {
		t.Fatalf("expected %d got %d", fiber.StatusOK, code)
	}
}

func TestSendCodeRateLimitWindowResets(t *testing.T) {
	app, mr, cleanup := setupLimiterApp(t, 1)
	defer cleanup()

	if code := postSendCode(t, app, "+998901234567"); code != fiber.StatusOK {
		t.Fatalf("expected %d got %d", fiber.StatusOK, code)
	}
	if code := postSendCode(t, app, "+998901234567"); code != fiber.StatusTooManyRequests {
		t.Fatalf("expected %d got %d", fiber.StatusTooManyRequests, code)
	}

	mr.FastForward(61 * time.Second)

	if code := postSendCode(t, app, "+998901234567"); code != fiber.StatusOK {
		t.Fatalf("expected %d after window reset, got %d", fiber.StatusOK, code)
	}
}
