package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/procare/procare_api/internal/auth"
)

// RegisterAuthRoutes wires the authentication endpoints. The code-issuance
// endpoints sit behind the burst limiter; logout and set-pin require a bearer
// token.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, codeLimiter, guard fiber.Handler) {
	group := r.Group("/auth/users")

	group.Post("/send-code", codeLimiter, h.SendCode)
	group.Post("/verify-code", h.VerifyCode)
	group.Post("/register", h.Register)
	group.Post("/login", h.Login)
	group.Post("/admin/login", h.AdminLogin)
	group.Post("/refresh", h.Refresh)

	group.Post("/forgot-password", codeLimiter, h.ForgotPassword)
	group.Post("/verify-reset-code", h.VerifyResetCode)
	group.Post("/reset-password", h.ResetPassword)

	group.Post("/forgot-pin", codeLimiter, h.ForgotPIN)
	group.Post("/verify-pin-code", h.VerifyPINResetCode)
	group.Post("/reset-pin", h.ResetPIN)

	group.Post("/logout", guard, h.Logout)
	group.Post("/set-pin", guard, h.SetPIN)
}
