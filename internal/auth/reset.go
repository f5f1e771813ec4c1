package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/procare/procare_api/internal/phone"
	"github.com/procare/procare_api/internal/user"
)

func resetTokenKey(token string) string {
	return fmt.Sprintf("reset_token:%s", token)
}

func pinResetTokenKey(token string) string {
	return fmt.Sprintf("pin_reset_token:%s", token)
}

// ForgotPassword starts the password reset pipeline. Only fully registered
// accounts can reset; an incomplete registration has no password to reset.
func (s *Service) ForgotPassword(ctx context.Context, rawPhone string) (CodeIssue, error) {
	num, err := s.openAccountNumber(ctx, rawPhone)
	if err != nil {
		return CodeIssue{}, err
	}
	return s.IssueCode(ctx, num, PurposeReset)
}

// ForgotPIN starts the PIN reset pipeline under its own code namespace.
func (s *Service) ForgotPIN(ctx context.Context, rawPhone string) (CodeIssue, error) {
	num, err := s.openAccountNumber(ctx, rawPhone)
	if err != nil {
		return CodeIssue{}, err
	}
	return s.IssueCode(ctx, num, PurposePINReset)
}

func (s *Service) openAccountNumber(ctx context.Context, rawPhone string) (phone.Number, error) {
	num, err := phone.Normalize(rawPhone)
	if err != nil {
		return phone.Number{}, newError(KindValidation, "invalid_phone", "invalid phone number format")
	}

	u, err := s.users.FindByPhone(ctx, num.Raw)
	if errors.Is(err, user.ErrNotFound) {
		return phone.Number{}, newError(KindUserNotFound, "user_not_found", "user not found")
	}
	if err != nil {
		return phone.Number{}, err
	}
	if u.Status != user.StatusOpen {
		return phone.Number{}, newError(KindAccessDenied, "not_registered", "reset is only allowed for registered accounts")
	}
	return num, nil
}

// VerifyResetCode exchanges a valid password-reset code for a one-time reset
// token bound to the phone. The code is consumed; the token, not the code,
// authorizes the subsequent reset step.
func (s *Service) VerifyResetCode(ctx context.Context, rawPhone, submitted string) (string, error) {
	return s.exchangeCode(ctx, rawPhone, submitted, PurposeReset, resetTokenKey)
}

// VerifyPINResetCode is the PIN variant of VerifyResetCode.
func (s *Service) VerifyPINResetCode(ctx context.Context, rawPhone, submitted string) (string, error) {
	return s.exchangeCode(ctx, rawPhone, submitted, PurposePINReset, pinResetTokenKey)
}

func (s *Service) exchangeCode(ctx context.Context, rawPhone, submitted string, purpose Purpose, tokenKey func(string) string) (string, error) {
	num, err := phone.Normalize(rawPhone)
	if err != nil {
		return "", newError(KindValidation, "invalid_phone", "invalid phone number format")
	}

	key := codeKey(purpose, num.Raw)
	stored, ok, err := s.store.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if !ok || stored != submitted {
		return "", newError(KindInvalidCode, "invalid_code", "invalid or expired code")
	}

	token := uuid.NewString()
	if err := s.store.Set(ctx, tokenKey(token), num.Raw, s.cfg.ResetTokenTTL); err != nil {
		return "", err
	}
	if err := s.store.Del(ctx, key); err != nil {
		return "", err
	}
	return token, nil
}

// ResetPassword consumes a reset token and stores the new password hash. No
// session is issued; the user logs in afterwards.
func (s *Service) ResetPassword(ctx context.Context, rawPhone, resetToken, newPassword, confirmPassword string) error {
	return s.reset(ctx, rawPhone, resetToken, newPassword, confirmPassword,
		resetTokenKey, "confirm_password", "passwords do not match", s.users.UpdatePasswordByPhone)
}

// ResetPIN consumes a PIN reset token and stores the new PIN hash.
func (s *Service) ResetPIN(ctx context.Context, rawPhone, resetToken, newPIN, confirmPIN string) error {
	return s.reset(ctx, rawPhone, resetToken, newPIN, confirmPIN,
		pinResetTokenKey, "confirm_pin", "PINs do not match", s.users.UpdatePINByPhone)
}

func (s *Service) reset(ctx context.Context, rawPhone, resetToken, newValue, confirmValue string,
	tokenKey func(string) string, mismatchLocation, mismatchMessage string,
	persist func(context.Context, string, []byte) error) error {

	num, err := phone.Normalize(rawPhone)
	if err != nil {
		return newError(KindValidation, "invalid_phone", "invalid phone number format")
	}

	storedPhone, ok, err := s.store.Get(ctx, tokenKey(resetToken))
	if err != nil {
		return err
	}
	if !ok || storedPhone != num.Raw {
		return newError(KindResetSessionInvalid, "invalid_token", "invalid or expired reset session")
	}

	if newValue != confirmValue {
		return newError(KindMismatch, mismatchLocation, mismatchMessage)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newValue), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	if err := persist(ctx, num.Raw, hash); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return newError(KindUserNotFound, "user_not_found", "user not found")
		}
		return err
	}

	// One-time use: the binding goes away with the first successful reset.
	if err := s.store.Del(ctx, tokenKey(resetToken)); err != nil {
		return err
	}

	s.logger.Info("credential reset", "location", mismatchLocation)
	return nil
}

// SetPIN creates or replaces the PIN of an authenticated account.
func (s *Service) SetPIN(ctx context.Context, userID, pin, confirmPIN string) error {
	if pin != confirmPIN {
		return newError(KindMismatch, "confirm_pin", "PINs do not match")
	}

	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return newError(KindUserNotFound, "user_not_found", "user not found")
		}
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.users.UpdatePINByID(ctx, userID, hash)
}
