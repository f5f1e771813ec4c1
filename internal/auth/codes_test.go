package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/procare/procare_api/internal/user"
)

func TestSendCodeSeedsPendingUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	issue, err := env.svc.SendVerificationCode(ctx, testPhone)
	if err != nil {
		t.Fatalf("send code: %v", err)
	}
	if len(issue.Code) != 6 {
		t.Fatalf("expected 6-digit code, got %q", issue.Code)
	}
	if issue.ExpiresIn != 300 || issue.RetryAfter != 60 {
		t.Fatalf("unexpected issue metadata: %+v", issue)
	}
	if env.gateway.sent() != 1 {
		t.Fatalf("expected one dispatch, got %d", env.gateway.sent())
	}

	u, err := env.users.FindByPhone(ctx, testPhone)
	if err != nil {
		t.Fatalf("find seeded user: %v", err)
	}
	if u.Status != user.StatusPending {
		t.Fatalf("expected Pending status, got %s", u.Status)
	}
	if u.CardCode != "C001" || u.FullName != "Test Partner" {
		t.Fatalf("partner data not seeded: %+v", u)
	}
	if u.PhoneVerified {
		t.Fatalf("phone must not be verified on seeding")
	}
}

func TestSendCodeSeedingIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.svc.SendVerificationCode(ctx, testPhone); err != nil {
		t.Fatalf("first send: %v", err)
	}
	first, err := env.users.FindByPhone(ctx, testPhone)
	if err != nil {
		t.Fatalf("find user: %v", err)
	}

	env.redis.FastForward(61 * time.Second)

	if _, err := env.svc.SendVerificationCode(ctx, testPhone); err != nil {
		t.Fatalf("second send: %v", err)
	}
	second, err := env.users.FindByPhone(ctx, testPhone)
	if err != nil {
		t.Fatalf("find user again: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("second send-code created a duplicate user")
	}
}

func TestSendCodeUnknownPhone(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.SendVerificationCode(context.Background(), "+998911111111")
	wantKind(t, err, KindPhoneNotFoundUpstream)
}

func TestSendCodeAlreadyRegistered(t *testing.T) {
	env := newTestEnv(t)

	env.registerUser(t, testPhone, "Pass1234")

	_, err := env.svc.SendVerificationCode(context.Background(), testPhone)
	wantKind(t, err, KindAlreadyRegistered)
}

func TestSendCodeRateLimited(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.svc.SendVerificationCode(ctx, testPhone); err != nil {
		t.Fatalf("first send: %v", err)
	}

	_, err := env.svc.SendVerificationCode(ctx, testPhone)
	wantKind(t, err, KindRateLimited)

	var e *Error
	errors.As(err, &e)
	if e.RetryAfter <= 0 || e.RetryAfter > 60 {
		t.Fatalf("expected retry_after in (0, 60], got %d", e.RetryAfter)
	}
}

func TestSendCodeCooldownExpires(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.svc.SendVerificationCode(ctx, testPhone); err != nil {
		t.Fatalf("first send: %v", err)
	}

	env.redis.FastForward(61 * time.Second)

	if _, err := env.svc.SendVerificationCode(ctx, testPhone); err != nil {
		t.Fatalf("send after cooldown: %v", err)
	}
}

func TestSendCodeOverwritesPriorCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.svc.SendVerificationCode(ctx, testPhone)
	if err != nil {
		t.Fatalf("first send: %v", err)
	}

	env.redis.FastForward(61 * time.Second)

	second, err := env.svc.SendVerificationCode(ctx, testPhone)
	if err != nil {
		t.Fatalf("second send: %v", err)
	}

	if first.Code != second.Code {
		// No code stacking: the first code must be dead once a new one exists.
		err = env.svc.VerifyCode(ctx, testPhone, first.Code)
		wantKind(t, err, KindInvalidCode)
	}

	if err := env.svc.VerifyCode(ctx, testPhone, second.Code); err != nil {
		t.Fatalf("verify latest code: %v", err)
	}
}

func TestDispatchFailureLeavesRetryOpen(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.gateway.failWith(errors.New("gateway down"))

	_, err := env.svc.SendVerificationCode(ctx, testPhone)
	wantKind(t, err, KindUpstreamUnavailable)

	// No cooldown was set, so an immediate retry must go through.
	env.gateway.failWith(nil)
	if _, err := env.svc.SendVerificationCode(ctx, testPhone); err != nil {
		t.Fatalf("retry after dispatch failure: %v", err)
	}
}

func TestVerifyCodeIsOneTimeUse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	issue, err := env.svc.SendVerificationCode(ctx, testPhone)
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if err := env.svc.VerifyCode(ctx, testPhone, issue.Code); err != nil {
		t.Fatalf("first verify: %v", err)
	}

	u, _ := env.users.FindByPhone(ctx, testPhone)
	if !u.PhoneVerified {
		t.Fatalf("expected phone_verified after successful verify")
	}
	if u.Status != user.StatusPending {
		t.Fatalf("verify must not advance status, got %s", u.Status)
	}

	err = env.svc.VerifyCode(ctx, testPhone, issue.Code)
	wantKind(t, err, KindInvalidCode)
}

func TestVerifyCodeWrongValue(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.svc.SendVerificationCode(ctx, testPhone); err != nil {
		t.Fatalf("send: %v", err)
	}

	err := env.svc.VerifyCode(ctx, testPhone, "000000")
	wantKind(t, err, KindInvalidCode)
}

func TestVerifyCodeExpires(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	issue, err := env.svc.SendVerificationCode(ctx, testPhone)
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	env.redis.FastForward(301 * time.Second)

	err = env.svc.VerifyCode(ctx, testPhone, issue.Code)
	wantKind(t, err, KindInvalidCode)
}
