package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/procare/procare_api/internal/phone"
	"github.com/procare/procare_api/internal/user"
)

// Purpose distinguishes independent one-time code namespaces. At most one
// live code exists per (purpose, phone); a new issuance overwrites it.
type Purpose string

const (
	PurposeVerify   Purpose = "verify"
	PurposeReset    Purpose = "reset-code"
	PurposePINReset Purpose = "pin-reset-code"
)

func codeKey(purpose Purpose, phoneRaw string) string {
	return fmt.Sprintf("%s:%s", purpose, phoneRaw)
}

func rateLimitKey(phoneRaw string) string {
	return fmt.Sprintf("rl:send_code:phone:%s", phoneRaw)
}

// CodeIssue reports a successful issuance. Code is cleared before it reaches
// the client in production.
type CodeIssue struct {
	Code       string
	ExpiresIn  int
	ExpiresAt  time.Time
	RetryAfter int
}

// IssueCode generates a one-time 6-digit code for (purpose, phone), stores it
// with the configured TTL and dispatches it through the SMS gateway. The code
// is written before dispatch; the resend cooldown key is written only after
// dispatch succeeds, so a failed send never locks the client out of a retry.
func (s *Service) IssueCode(ctx context.Context, num phone.Number, purpose Purpose) (CodeIssue, error) {
	ttl, err := s.store.TTL(ctx, rateLimitKey(num.Raw))
	if err != nil {
		return CodeIssue{}, err
	}
	if ttl > 0 {
		return CodeIssue{}, &Error{
			Kind:       KindRateLimited,
			Location:   "auth_send_code_rate_limit",
			Message:    "too many requests, please try again later",
			RetryAfter: int(ttl.Seconds()),
		}
	}

	code, err := randomCode()
	if err != nil {
		return CodeIssue{}, err
	}
	messageID, err := randomMessageID()
	if err != nil {
		return CodeIssue{}, err
	}

	if err := s.store.Set(ctx, codeKey(purpose, num.Raw), code, s.cfg.CodeTTL); err != nil {
		return CodeIssue{}, err
	}

	text := fmt.Sprintf("Tasdiqlash kodi: %s\nKod faqat siz uchun. Uni boshqalarga bermang.", code)
	if err := s.sms.Send(ctx, num.Last9, messageID, text); err != nil {
		s.logger.Error("sms dispatch failed", "message_id", messageID, "error", err)
		// The stored code stays valid; a fresh send-code call is the recovery path.
		return CodeIssue{}, newError(KindUpstreamUnavailable, "sms_gateway", "sms gateway unavailable")
	}

	if err := s.store.Set(ctx, rateLimitKey(num.Raw), "1", s.cfg.ResendCooldown); err != nil {
		return CodeIssue{}, err
	}

	s.logger.Info("code issued", "purpose", string(purpose), "message_id", messageID)

	return CodeIssue{
		Code:       code,
		ExpiresIn:  int(s.cfg.CodeTTL.Seconds()),
		ExpiresAt:  time.Now().Add(s.cfg.CodeTTL).UTC(),
		RetryAfter: int(s.cfg.ResendCooldown.Seconds()),
	}, nil
}

// SendVerificationCode issues a verification code and, for a phone the system
// has never seen, seeds a Pending account from the ERP directory. The seeding
// is idempotent: a second call for an already-Pending phone issues a new code
// without touching the account.
func (s *Service) SendVerificationCode(ctx context.Context, rawPhone string) (CodeIssue, error) {
	num, err := phone.Normalize(rawPhone)
	if err != nil {
		return CodeIssue{}, newError(KindValidation, "invalid_phone", "invalid phone number format")
	}

	u, err := s.users.FindByPhone(ctx, num.Raw)
	switch {
	case err == nil:
		if u.Status != user.StatusPending {
			return CodeIssue{}, newError(KindAlreadyRegistered, "already_registered", "user already registered, please login")
		}
	case errors.Is(err, user.ErrNotFound):
		partners, lookupErr := s.erp.FindByPhone(ctx, num.Last9)
		if lookupErr != nil {
			s.logger.Error("erp lookup failed", "error", lookupErr)
			return CodeIssue{}, newError(KindUpstreamUnavailable, "erp_lookup", "partner directory unavailable")
		}
		if len(partners) == 0 {
			return CodeIssue{}, newError(KindPhoneNotFoundUpstream, "erp_not_found", "this phone number is not registered with a partner")
		}

		partner := partners[0]
		created := user.User{
			ID:            uuid.NewString(),
			PhoneMain:     num.Raw,
			PhoneVerified: false,
			Status:        user.StatusPending,
			IsAdmin:       partner.IsAdmin,
			CardCode:      partner.CardCode,
			FullName:      partner.CardName,
		}
		if err := s.users.Create(ctx, created); err != nil {
			return CodeIssue{}, err
		}
		s.logger.Info("pending account seeded", "user_id", created.ID, "card_code", partner.CardCode)
	default:
		return CodeIssue{}, err
	}

	return s.IssueCode(ctx, num, PurposeVerify)
}

// VerifyCode consumes a verification code and flips the phone-verified flag.
// A missing code and a wrong code are deliberately indistinguishable.
func (s *Service) VerifyCode(ctx context.Context, rawPhone, submitted string) error {
	num, err := phone.Normalize(rawPhone)
	if err != nil {
		return newError(KindValidation, "invalid_phone", "invalid phone number format")
	}

	key := codeKey(PurposeVerify, num.Raw)
	stored, ok, err := s.store.Get(ctx, key)
	if err != nil {
		return err
	}
	if !ok || stored != submitted {
		return newError(KindInvalidCode, "invalid_code", "invalid verification code")
	}

	if err := s.users.MarkPhoneVerified(ctx, num.Raw); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return newError(KindUserNotFound, "user_not_found", "user not found")
		}
		return err
	}

	return s.store.Del(ctx, key)
}
