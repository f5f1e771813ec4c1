package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/gofiber/fiber/v2"

	"github.com/procare/procare_api/internal/config"
	"github.com/procare/procare_api/internal/phone"
)

var (
	codePattern = regexp.MustCompile(`^[0-9]{6}$`)
	pinPattern  = regexp.MustCompile(`^[0-9]{4}$`)
)

const (
	passwordMinLen    = 4
	passwordMaxLen    = 20
	deviceTokenMaxLen = 4096
)

// Handler exposes the auth endpoints.
type Handler struct {
	cfg     config.Config
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs the auth HTTP handler.
func NewHandler(cfg config.Config, service *Service, logger *slog.Logger) *Handler {
	return &Handler{cfg: cfg, service: service, logger: logger}
}

// fail renders a business error with its kind-derived status and location
// tag; anything outside the closed error set is a plain 500.
func (h *Handler) fail(c *fiber.Ctx, err error) error {
	var e *Error
	if errors.As(err, &e) {
		body := fiber.Map{"message": e.Message, "location": e.Location}
		if e.RetryAfter > 0 {
			body["retry_after"] = e.RetryAfter
		}
		return c.Status(e.HTTPStatus()).JSON(body)
	}
	h.logger.Error("auth request failed", "path", c.Path(), "error", err)
	return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"message": "internal server error"})
}

func validationError(c *fiber.Ctx, message string) error {
	return c.Status(http.StatusBadRequest).JSON(fiber.Map{"message": message, "location": "validation"})
}

func validPassword(v string) bool {
	return len(v) >= passwordMinLen && len(v) <= passwordMaxLen
}

// sendCodeResponse echoes the raw code only outside production, for test
// automation.
func (h *Handler) sendCodeResponse(c *fiber.Ctx, message string, issue CodeIssue) error {
	body := fiber.Map{
		"message": message,
		"data": fiber.Map{
			"expires_in":  issue.ExpiresIn,
			"expires_at":  issue.ExpiresAt,
			"retry_after": issue.RetryAfter,
		},
	}
	if !h.cfg.IsProduction() {
		body["code"] = issue.Code
	}
	return c.Status(http.StatusOK).JSON(body)
}

type sendCodeRequest struct {
	PhoneMain string `json:"phone_main"`
}

// SendCode issues a verification code, seeding a Pending account on first use.
func (h *Handler) SendCode(c *fiber.Ctx) error {
	var req sendCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return validationError(c, "invalid request body")
	}
	if !phone.Valid(req.PhoneMain) {
		return validationError(c, "invalid phone number format")
	}

	issue, err := h.service.SendVerificationCode(c.UserContext(), req.PhoneMain)
	if err != nil {
		return h.fail(c, err)
	}
	return h.sendCodeResponse(c, "verification code sent successfully", issue)
}

type verifyCodeRequest struct {
	PhoneMain string `json:"phone_main"`
	Code      string `json:"code"`
}

func (r verifyCodeRequest) validate() string {
	if !phone.Valid(r.PhoneMain) {
		return "invalid phone number format"
	}
	if !codePattern.MatchString(r.Code) {
		return "code must be 6 digits"
	}
	return ""
}

// VerifyCode consumes a verification code and marks the phone verified.
func (h *Handler) VerifyCode(c *fiber.Ctx) error {
	var req verifyCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return validationError(c, "invalid request body")
	}
	if msg := req.validate(); msg != "" {
		return validationError(c, msg)
	}

	if err := h.service.VerifyCode(c.UserContext(), req.PhoneMain, req.Code); err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "phone number verified successfully"})
}

type registerRequest struct {
	PhoneMain       string `json:"phone_main"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	DeviceToken     string `json:"device_token"`
}

func (r registerRequest) validate() string {
	if !phone.Valid(r.PhoneMain) {
		return "invalid phone number format"
	}
	if !validPassword(r.Password) || !validPassword(r.ConfirmPassword) {
		return "password must be between 4 and 20 characters"
	}
	if len(r.DeviceToken) > deviceTokenMaxLen {
		return "device token too long"
	}
	return ""
}

// Register completes registration and returns the first session tokens.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return validationError(c, "invalid request body")
	}
	if msg := req.validate(); msg != "" {
		return validationError(c, msg)
	}

	tokens, err := h.service.CompleteRegistration(c.UserContext(), req.PhoneMain, req.Password, req.ConfirmPassword, req.DeviceToken)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusOK).JSON(tokens)
}

type loginRequest struct {
	PhoneMain   string `json:"phone_main"`
	Password    string `json:"password"`
	DeviceToken string `json:"device_token"`
}

func (r loginRequest) validate() string {
	if !phone.Valid(r.PhoneMain) {
		return "invalid phone number format"
	}
	if r.Password == "" || len(r.Password) > passwordMaxLen {
		return "password must be between 1 and 20 characters"
	}
	if len(r.DeviceToken) > deviceTokenMaxLen {
		return "device token too long"
	}
	return ""
}

// Login authenticates a user and issues a session.
func (h *Handler) Login(c *fiber.Ctx) error {
	return h.loginWith(c, h.service.Login)
}

// AdminLogin authenticates an admin account.
func (h *Handler) AdminLogin(c *fiber.Ctx) error {
	return h.loginWith(c, h.service.AdminLogin)
}

func (h *Handler) loginWith(c *fiber.Ctx, login func(ctx context.Context, phone, password, deviceToken string) (TokenPair, error)) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return validationError(c, "invalid request body")
	}
	if msg := req.validate(); msg != "" {
		return validationError(c, msg)
	}

	tokens, err := login(c.UserContext(), req.PhoneMain, req.Password, req.DeviceToken)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusOK).JSON(tokens)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh rotates a refresh token into a new token pair.
func (h *Handler) Refresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil {
		return validationError(c, "invalid request body")
	}
	if req.RefreshToken == "" {
		return validationError(c, "refresh_token is required")
	}

	tokens, err := h.service.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusOK).JSON(tokens)
}

// Logout invalidates the presented bearer token. Requires the auth guard,
// which stores the authorized user id and raw token in locals.
func (h *Handler) Logout(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	token, _ := c.Locals("bearer_token").(string)
	if userID == "" || token == "" {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"message": "token not found", "location": "invalid_token"})
	}

	if err := h.service.Logout(c.UserContext(), userID, token); err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "logged out successfully"})
}

type forgotRequest struct {
	PhoneMain string `json:"phone_main"`
}

// ForgotPassword issues a password-reset code.
func (h *Handler) ForgotPassword(c *fiber.Ctx) error {
	return h.forgotWith(c, h.service.ForgotPassword, "reset code sent successfully")
}

// ForgotPIN issues a PIN-reset code.
func (h *Handler) ForgotPIN(c *fiber.Ctx) error {
	return h.forgotWith(c, h.service.ForgotPIN, "PIN reset code sent successfully")
}

func (h *Handler) forgotWith(c *fiber.Ctx, forgot func(context.Context, string) (CodeIssue, error), message string) error {
	var req forgotRequest
	if err := c.BodyParser(&req); err != nil {
		return validationError(c, "invalid request body")
	}
	if !phone.Valid(req.PhoneMain) {
		return validationError(c, "invalid phone number format")
	}

	issue, err := forgot(c.UserContext(), req.PhoneMain)
	if err != nil {
		return h.fail(c, err)
	}
	return h.sendCodeResponse(c, message, issue)
}

// VerifyResetCode exchanges a password-reset code for a one-time reset token.
func (h *Handler) VerifyResetCode(c *fiber.Ctx) error {
	return h.verifyResetWith(c, h.service.VerifyResetCode)
}

// VerifyPINResetCode exchanges a PIN-reset code for a one-time reset token.
func (h *Handler) VerifyPINResetCode(c *fiber.Ctx) error {
	return h.verifyResetWith(c, h.service.VerifyPINResetCode)
}

func (h *Handler) verifyResetWith(c *fiber.Ctx, exchange func(context.Context, string, string) (string, error)) error {
	var req verifyCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return validationError(c, "invalid request body")
	}
	if msg := req.validate(); msg != "" {
		return validationError(c, msg)
	}

	token, err := exchange(c.UserContext(), req.PhoneMain, req.Code)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"reset_token": token})
}

type resetPasswordRequest struct {
	PhoneMain          string `json:"phone_main"`
	ResetToken         string `json:"reset_token"`
	NewPassword        string `json:"new_password"`
	ConfirmNewPassword string `json:"confirm_new_password"`
}

func (r resetPasswordRequest) validate() string {
	if !phone.Valid(r.PhoneMain) {
		return "invalid phone number format"
	}
	if r.ResetToken == "" {
		return "reset_token is required"
	}
	if !validPassword(r.NewPassword) || !validPassword(r.ConfirmNewPassword) {
		return "password must be between 4 and 20 characters"
	}
	return ""
}

// ResetPassword consumes a reset token and stores the new password.
func (h *Handler) ResetPassword(c *fiber.Ctx) error {
	var req resetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return validationError(c, "invalid request body")
	}
	if msg := req.validate(); msg != "" {
		return validationError(c, msg)
	}

	if err := h.service.ResetPassword(c.UserContext(), req.PhoneMain, req.ResetToken, req.NewPassword, req.ConfirmNewPassword); err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "password reset successfully"})
}

type resetPINRequest struct {
	PhoneMain  string `json:"phone_main"`
	ResetToken string `json:"reset_token"`
	NewPIN     string `json:"new_pin"`
	ConfirmPIN string `json:"confirm_pin"`
}

func (r resetPINRequest) validate() string {
	if !phone.Valid(r.PhoneMain) {
		return "invalid phone number format"
	}
	if r.ResetToken == "" {
		return "reset_token is required"
	}
	if !pinPattern.MatchString(r.NewPIN) || !pinPattern.MatchString(r.ConfirmPIN) {
		return "PIN must be exactly 4 digits"
	}
	return ""
}

// ResetPIN consumes a PIN reset token and stores the new PIN.
func (h *Handler) ResetPIN(c *fiber.Ctx) error {
	var req resetPINRequest
	if err := c.BodyParser(&req); err != nil {
		return validationError(c, "invalid request body")
	}
	if msg := req.validate(); msg != "" {
		return validationError(c, msg)
	}

	if err := h.service.ResetPIN(c.UserContext(), req.PhoneMain, req.ResetToken, req.NewPIN, req.ConfirmPIN); err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "PIN updated"})
}

type setPINRequest struct {
	PIN        string `json:"pin"`
	ConfirmPIN string `json:"confirm_pin"`
}

// SetPIN creates or replaces the PIN of the authenticated user.
func (h *Handler) SetPIN(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.SendStatus(http.StatusUnauthorized)
	}

	var req setPINRequest
	if err := c.BodyParser(&req); err != nil {
		return validationError(c, "invalid request body")
	}
	if !pinPattern.MatchString(req.PIN) || !pinPattern.MatchString(req.ConfirmPIN) {
		return validationError(c, "PIN must be exactly 4 digits")
	}

	if err := h.service.SetPIN(c.UserContext(), userID, req.PIN, req.ConfirmPIN); err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "PIN created"})
}
