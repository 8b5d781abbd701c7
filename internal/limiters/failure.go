package limiters

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/goShield/store"
)

// FailureConfig holds configuration for the validation-failure lockout.
type FailureConfig struct {
	Threshold int
	Window    time.Duration // 0 = manual reset only
	Prefix    string
}

// FailureLimiter counts failed anti-forgery validations per session and
// reports when the threshold locks the session out.
type FailureLimiter struct {
	kv     store.KV
	config FailureConfig
}

// NewFailureLimiter creates a new failure limiter.
func NewFailureLimiter(kv store.KV, cfg FailureConfig) *FailureLimiter {
	if cfg.Prefix == "" {
		cfg.Prefix = "afl"
	}
	return &FailureLimiter{kv: kv, config: cfg}
}

func (l *FailureLimiter) key(sessionID string) string {
	return l.config.Prefix + ":" + sessionID
}

// RecordFailure increments the failure counter for a session and returns the
// new count plus whether the session is now locked. The counter's window
// starts at the first failure, so the lock rides out the remainder of that
// window rather than sliding.
func (l *FailureLimiter) RecordFailure(ctx context.Context, sessionID string) (int, bool, error) {
	if l == nil || sessionID == "" {
		return 0, false, nil
	}

	count, err := l.kv.Increment(ctx, l.key(sessionID), l.config.Window)
	if err != nil {
		return 0, false, err
	}

	if l.config.Threshold <= 0 {
		return int(count), false, nil
	}
	return int(count), count >= int64(l.config.Threshold), nil
}

// Locked reports whether the session has reached the failure threshold.
func (l *FailureLimiter) Locked(ctx context.Context, sessionID string) (bool, error) {
	if l == nil || l.config.Threshold <= 0 {
		return false, nil
	}

	count, err := l.FailureCount(ctx, sessionID)
	if err != nil {
		return false, err
	}
	return count >= l.config.Threshold, nil
}

// Reset clears the failure counter (session destruction or manual unlock).
func (l *FailureLimiter) Reset(ctx context.Context, sessionID string) error {
	if l == nil || sessionID == "" {
		return nil
	}
	return l.kv.Delete(ctx, l.key(sessionID))
}

// FailureCount returns the current failure count. Missing counters read as
// zero.
func (l *FailureLimiter) FailureCount(ctx context.Context, sessionID string) (int, error) {
	if l == nil || sessionID == "" {
		return 0, nil
	}

	data, err := l.kv.Get(ctx, l.key(sessionID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}

	count, err := strconv.Atoi(string(data))
	if err != nil {
		return 0, fmt.Errorf("failure counter corrupt: %v", err)
	}
	return count, nil
}
