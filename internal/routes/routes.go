package routes

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/procare/procare_api/internal/auth"
	"github.com/procare/procare_api/internal/config"
	"github.com/procare/procare_api/internal/erp"
	"github.com/procare/procare_api/internal/kvstore"
	"github.com/procare/procare_api/internal/middleware"
	"github.com/procare/procare_api/internal/sms"
	"github.com/procare/procare_api/internal/user"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// maintenanceExcluded lists path prefixes that stay reachable while the
// maintenance flag is set.
var maintenanceExcluded = []string{
	"/healthz",
	"/auth/users/admin/login",
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	store := kvstore.NewRedisStore(d.Cache, d.Cfg.RedisPrefix)

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	app.Use(middleware.Maintenance(store, maintenanceExcluded, d.Logger))

	RegisterHealthRoutes(app, d)

	users := user.NewPostgresRepository(d.DB)

	// Real dispatch only in production; elsewhere issued codes are logged and
	// echoed in responses for test automation.
	var gateway sms.Gateway
	if d.Cfg.IsProduction() && d.Cfg.SMSAPIURL != "" {
		gateway = sms.NewHTTPGateway(d.Cfg.SMSAPIURL, d.Cfg.SMSUsername, d.Cfg.SMSPassword, d.Cfg.SMSOriginator)
	} else {
		gateway = sms.NewLoggerGateway(d.Logger)
	}

	var directory erp.Directory
	if d.Cfg.ERPAPIURL != "" {
		directory = erp.NewHTTPDirectory(d.Cfg.ERPAPIURL, d.Cfg.ERPUsername, d.Cfg.ERPPassword)
	} else {
		directory = erp.NewStaticDirectory(nil)
	}

	authSvc := auth.NewService(d.Cfg, users, store, gateway, directory, d.Logger)
	authHandler := auth.NewHandler(d.Cfg, authSvc, d.Logger)

	codeLimiter := middleware.SendCodeRateLimit(store, 5)
	guard := middleware.BearerAuth(authSvc)
	RegisterAuthRoutes(app, authHandler, codeLimiter, guard)

	return nil
}
