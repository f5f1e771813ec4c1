package kvstore

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisStore(client, "test"), mr
}

func TestSetGetDel(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "verify:+998901234567", "123456", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	value, ok, err := store.Get(ctx, "verify:+998901234567")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok || value != "123456" {
		t.Fatalf("expected stored code, got %q ok=%v", value, ok)
	}

	if err := store.Del(ctx, "verify:+998901234567"); err != nil {
		t.Fatalf("del: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "verify:+998901234567"); ok {
		t.Fatalf("expected key gone after delete")
	}
}

func TestGetMissingKey(t *testing.T) {
	store, _ := newTestStore(t)

	value, ok, err := store.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok || value != "" {
		t.Fatalf("expected miss, got %q ok=%v", value, ok)
	}
}

func TestKeyExpiry(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "rl:send_code:phone:+998901234567", "1", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	ttl, err := store.TTL(ctx, "rl:send_code:phone:+998901234567")
	if err != nil {
		t.Fatalf("ttl: %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected ttl %v", ttl)
	}

	mr.FastForward(2 * time.Minute)

	if _, ok, _ := store.Get(ctx, "rl:send_code:phone:+998901234567"); ok {
		t.Fatalf("expected key expired")
	}
}

func TestSetNX(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	ok, err := store.SetNX(ctx, "flag", "1", time.Minute)
	if err != nil {
		t.Fatalf("setnx: %v", err)
	}
	if !ok {
		t.Fatalf("expected first setnx to win")
	}

	ok, err = store.SetNX(ctx, "flag", "2", time.Minute)
	if err != nil {
		t.Fatalf("setnx: %v", err)
	}
	if ok {
		t.Fatalf("expected second setnx to lose")
	}
}

func TestIncrExpire(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	n, err := store.Incr(ctx, "counter")
	if err != nil {
		t.Fatalf("incr: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1, got %d", n)
	}
	if err := store.Expire(ctx, "counter", time.Minute); err != nil {
		t.Fatalf("expire: %v", err)
	}

	mr.FastForward(2 * time.Minute)
	if _, ok, _ := store.Get(ctx, "counter"); ok {
		t.Fatalf("expected counter expired")
	}
}
