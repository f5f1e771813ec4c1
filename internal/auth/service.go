package auth

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/procare/procare_api/internal/config"
	"github.com/procare/procare_api/internal/erp"
	"github.com/procare/procare_api/internal/kvstore"
	"github.com/procare/procare_api/internal/phone"
	"github.com/procare/procare_api/internal/sms"
	"github.com/procare/procare_api/internal/user"
)

// Service drives the verification-code and session lifecycle: code issuance,
// phone verification, registration completion, login, session revocation and
// the password/PIN reset pipelines. All short-lived state lives in the shared
// ephemeral store; the user repository is the only persistent writer.
type Service struct {
	cfg    config.Config
	users  user.Repository
	store  kvstore.Store
	tokens *TokenManager
	sms    sms.Gateway
	erp    erp.Directory
	logger *slog.Logger
}

// NewService wires the auth core with its collaborators.
func NewService(cfg config.Config, users user.Repository, store kvstore.Store, gateway sms.Gateway, directory erp.Directory, logger *slog.Logger) *Service {
	return &Service{
		cfg:    cfg,
		users:  users,
		store:  store,
		tokens: NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL),
		sms:    gateway,
		erp:    directory,
		logger: logger,
	}
}

// CompleteRegistration finishes the Pending-to-Open transition: the phone must
// be verified, passwords must match, and the status flip happens as one
// conditional update so a double submission cannot issue a second session.
func (s *Service) CompleteRegistration(ctx context.Context, rawPhone, password, confirmPassword, deviceToken string) (TokenPair, error) {
	num, err := phone.Normalize(rawPhone)
	if err != nil {
		return TokenPair{}, newError(KindValidation, "invalid_phone", "invalid phone number format")
	}

	u, err := s.users.FindByPhone(ctx, num.Raw)
	if errors.Is(err, user.ErrNotFound) {
		return TokenPair{}, newError(KindUserNotFound, "user_not_found", "user not found")
	}
	if err != nil {
		return TokenPair{}, err
	}

	if u.Status != user.StatusPending {
		return TokenPair{}, newError(KindAlreadyRegistered, "already_registered", "user already completed registration")
	}
	if !u.PhoneVerified {
		return TokenPair{}, newError(KindPhoneNotVerified, "phone_not_verified", "phone number not verified")
	}
	if password != confirmPassword {
		return TokenPair{}, newError(KindMismatch, "confirm_password", "passwords do not match")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return TokenPair{}, err
	}

	err = s.users.CompleteRegistration(ctx, num.Raw, hash, deviceToken)
	if errors.Is(err, user.ErrNotPending) {
		// A concurrent completion won the conditional update.
		return TokenPair{}, newError(KindAlreadyRegistered, "already_registered", "user already completed registration")
	}
	if err != nil {
		return TokenPair{}, err
	}

	u.Status = user.StatusOpen
	u.PasswordHash = hash
	u.DeviceToken = deviceToken

	s.logger.Info("registration completed", "user_id", u.ID)

	return s.IssueSession(ctx, u)
}

// Login validates credentials and issues a fresh session, displacing any
// previously active one. A missing account and a wrong password are
// indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, rawPhone, password, deviceToken string) (TokenPair, error) {
	return s.login(ctx, rawPhone, password, deviceToken, false)
}

// AdminLogin is Login restricted to accounts carrying the admin flag.
func (s *Service) AdminLogin(ctx context.Context, rawPhone, password, deviceToken string) (TokenPair, error) {
	return s.login(ctx, rawPhone, password, deviceToken, true)
}

func (s *Service) login(ctx context.Context, rawPhone, password, deviceToken string, requireAdmin bool) (TokenPair, error) {
	num, err := phone.Normalize(rawPhone)
	if err != nil {
		return TokenPair{}, newError(KindValidation, "invalid_phone", "invalid phone number format")
	}

	invalid := newError(KindInvalidCredentials, "invalid_login", "invalid phone number or password")

	u, err := s.users.FindByPhone(ctx, num.Raw)
	if errors.Is(err, user.ErrNotFound) {
		return TokenPair{}, invalid
	}
	if err != nil {
		return TokenPair{}, err
	}

	if u.Status == user.StatusPending {
		return TokenPair{}, newError(KindIncompleteRegistration, "incomplete_registration", "registration incomplete, please complete registration")
	}

	if bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)) != nil {
		return TokenPair{}, invalid
	}

	if u.Status != user.StatusOpen {
		return TokenPair{}, newError(KindAccessDenied, "account_not_active", "account is not active")
	}
	if requireAdmin && !u.IsAdmin {
		return TokenPair{}, newError(KindAccessDenied, "admin_required", "access denied, admin privileges required")
	}

	// Push-delivery routing only, not a security decision.
	if deviceToken != "" && deviceToken != u.DeviceToken {
		if err := s.users.UpdateDeviceToken(ctx, u.ID, deviceToken); err != nil {
			return TokenPair{}, err
		}
		u.DeviceToken = deviceToken
	}

	return s.IssueSession(ctx, u)
}
