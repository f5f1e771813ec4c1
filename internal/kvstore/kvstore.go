// Package kvstore abstracts the shared TTL-capable key-value store that holds
// all short-lived authentication state: verification codes, rate-limit keys,
// sessions, the token blacklist and reset tokens. Correctness of the
// single-active-session and rate-limiting invariants depends on the store
// being shared across server instances, so callers must never substitute
// in-process memory outside of tests.
package kvstore

import (
	"context"
	"time"
)

// Store is the minimal contract the auth core needs from the ephemeral store.
// A zero TTL on Set means no expiry.
type Store interface {
	// Get returns the value for key. The second result is false when the key
	// does not exist or has expired.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// SetNX sets the key only if it does not exist and reports whether it did.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	// TTL returns the remaining lifetime of key, or a negative duration when
	// the key does not exist.
	TTL(ctx context.Context, key string) (time.Duration, error)
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}
