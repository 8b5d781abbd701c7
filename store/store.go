package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when the requested key does not exist.
var ErrNotFound = errors.New("key not found")

// ErrUnavailable is returned when the backing store cannot be reached or an
// operation fails for infrastructure reasons. Callers treat it as a signal to
// fail closed, never as a verdict about the data.
var ErrUnavailable = errors.New("store unavailable")

// KV is the minimal store contract goShield components depend on. All methods
// must be safe for concurrent use and atomic with respect to a single key.
type KV interface {
	// Get returns the value stored at key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set writes value at key. A ttl of zero or less stores the key without
	// expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes the given keys. Deleting a missing key is not an error.
	Delete(ctx context.Context, keys ...string) error

	// Increment atomically increments the integer counter at key and returns
	// the new value. The ttl is applied only when the increment creates the
	// counter, so the expiry window starts at the first hit.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// CompareAndSwap atomically replaces the value at key with next when the
	// current value equals expected, and reports whether the swap happened.
	// An empty expected asserts the key must not exist (insert). An empty
	// next deletes the key on match. The ttl applies to the written value.
	CompareAndSwap(ctx context.Context, key string, expected, next []byte, ttl time.Duration) (bool, error)

	// TTL returns the remaining lifetime of key. Keys stored without expiry
	// report zero; missing keys report ErrNotFound.
	TTL(ctx context.Context, key string) (time.Duration, error)

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}
