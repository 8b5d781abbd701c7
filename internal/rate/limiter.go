package rate

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goShield/store"
)

// Result reports the outcome of a single budget check.
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter enforces fixed-window request budgets on shared store counters.
type Limiter struct {
	kv     store.KV
	prefix string
}

// New creates a [Limiter] whose keys live under prefix.
func New(kv store.KV, prefix string) *Limiter {
	if prefix == "" {
		prefix = "afr"
	}
	return &Limiter{
		kv:     kv,
		prefix: prefix,
	}
}

// Check spends one unit of the key's budget and reports whether the request
// still fits within limit for the current window. The increment and the
// comparison run against one atomic counter, so concurrent checks across
// processes can never admit more than limit requests per window. A limit of
// zero or less disables the check.
func (l *Limiter) Check(ctx context.Context, key string, limit int, window time.Duration) (Result, error) {
	if limit <= 0 {
		return Result{Allowed: true}, nil
	}

	full := l.prefix + ":" + key
	count, err := l.kv.Increment(ctx, full, window)
	if err != nil {
		return Result{}, err
	}

	if count > int64(limit) {
		retryAfter, err := l.kv.TTL(ctx, full)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return Result{}, err
		}
		if retryAfter <= 0 {
			retryAfter = time.Second
		}
		return Result{RetryAfter: retryAfter}, nil
	}

	return Result{Allowed: true, Remaining: limit - int(count)}, nil
}

// Reset clears the counter for key, reopening its budget immediately.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	return l.kv.Delete(ctx, l.prefix+":"+key)
}
