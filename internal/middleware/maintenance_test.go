package middleware

import (
	"context"
	"net/http/httptest"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/procare/procare_api/internal/kvstore"
	"github.com/procare/procare_api/internal/logging"
)

func setupMaintenanceApp(t *testing.T) (*fiber.App, kvstore.Store, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}

	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := kvstore.NewRedisStore(cache, "test")

	app := fiber.New()
	app.Use(Maintenance(store, []string{"/healthz"}, logging.Discard()))
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Post("/auth/users/login", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})

	cleanup := func() {
		cache.Close()
		mr.Close()
	}

	return app, store, cleanup
}

func TestMaintenancePassesWhenFlagUnset(t *testing.T) {
	app, _, cleanup := setupMaintenanceApp(t)
	defer cleanup()

	resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/auth/users/login", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected %d got %d", fiber.StatusOK, resp.StatusCode)
	}
}

func TestMaintenanceBlocksWhenFlagSet(t *testing.T) {
	app, store, cleanup := setupMaintenanceApp(t)
	defer cleanup()

	if err := store.Set(context.Background(), maintenanceKey, "1", 0); err != nil {
		t.Fatalf("set flag: %v", err)
	}

	resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/auth/users/login", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Fatalf("expected %d got %d", fiber.StatusServiceUnavailable, resp.StatusCode)
	}
}

func TestMaintenanceExcludedPathStaysUp(t *testing.T) {
	app, store, cleanup := setupMaintenanceApp(t)
	defer cleanup()

	if err := store.Set(context.Background(), maintenanceKey, "1", 0); err != nil {
		t.Fatalf("set flag: %v", err)
	}

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/healthz", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected %d got %d", fiber.StatusOK, resp.StatusCode)
	}
}
