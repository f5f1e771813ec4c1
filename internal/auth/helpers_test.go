package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/procare/procare_api/internal/config"
	"github.com/procare/procare_api/internal/erp"
	"github.com/procare/procare_api/internal/kvstore"
	"github.com/procare/procare_api/internal/logging"
	"github.com/procare/procare_api/internal/user"
)

const (
	testPhone      = "+998901234567"
	testAdminPhone = "+998909999999"
)

// fakeGateway records dispatched messages and can be told to fail.
type fakeGateway struct {
	mu    sync.Mutex
	sends []string
	err   error
}

func (g *fakeGateway) Send(_ context.Context, recipient, _, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return g.err
	}
	g.sends = append(g.sends, recipient)
	return nil
}

func (g *fakeGateway) failWith(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.err = err
}

func (g *fakeGateway) sent() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sends)
}

func testConfig() config.Config {
	return config.Config{
		AppName:         "ProCareAuth",
		AppEnv:          "test",
		JWTSecret:       "test-secret",
		RedisPrefix:     "test",
		CodeTTL:         300 * time.Second,
		ResendCooldown:  60 * time.Second,
		SessionTTL:      24 * time.Hour,
		AccessTokenTTL:  30 * 24 * time.Hour,
		RefreshTokenTTL: 31 * 24 * time.Hour,
		ResetTokenTTL:   10 * time.Minute,
		BlacklistTTL:    7 * 24 * time.Hour,
	}
}

type testEnv struct {
	svc     *Service
	users   user.Repository
	gateway *fakeGateway
	redis   *miniredis.Miniredis
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	users := user.NewMemoryRepository()
	gateway := &fakeGateway{}
	directory := erp.NewStaticDirectory(map[string][]erp.Partner{
		"901234567": {{CardCode: "C001", CardName: "Test Partner"}},
		"909999999": {{CardCode: "C900", CardName: "Admin Partner", IsAdmin: true}},
	})

	svc := NewService(testConfig(), users, kvstore.NewRedisStore(client, "test"), gateway, directory, logging.Discard())

	return &testEnv{svc: svc, users: users, gateway: gateway, redis: mr}
}

// registerUser drives a phone through the full send-code, verify, register
// pipeline and returns the resulting token pair.
func (e *testEnv) registerUser(t *testing.T, phone, password string) TokenPair {
	t.Helper()
	ctx := context.Background()

	issue, err := e.svc.SendVerificationCode(ctx, phone)
	if err != nil {
		t.Fatalf("send code: %v", err)
	}
	if err := e.svc.VerifyCode(ctx, phone, issue.Code); err != nil {
		t.Fatalf("verify code: %v", err)
	}
	tokens, err := e.svc.CompleteRegistration(ctx, phone, password, password, "dev-token")
	if err != nil {
		t.Fatalf("complete registration: %v", err)
	}
	// Clear the resend cooldown so follow-up flows can issue codes at once.
	e.redis.FastForward(61 * time.Second)
	return tokens
}

func wantKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error of kind %s, got nil", kind)
	}
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *auth.Error of kind %s, got %v", kind, err)
	}
	if e.Kind != kind {
		t.Fatalf("expected kind %s, got %s (%v)", kind, e.Kind, err)
	}
}
