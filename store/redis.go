package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// compareAndSwapScript implements the KV.CompareAndSwap contract server-side
// so the read-compare-write cycle is atomic across engine instances.
// ARGV[1] = expected ("" asserts absence), ARGV[2] = next ("" deletes),
// ARGV[3] = ttl in milliseconds (0 = no expiry).
const compareAndSwapScript = `
local current = redis.call("GET", KEYS[1])
if ARGV[1] == "" then
  if current then
    return 0
  end
else
  if not current or current ~= ARGV[1] then
    return 0
  end
end
if ARGV[2] == "" then
  redis.call("DEL", KEYS[1])
  return 1
end
local ttl = tonumber(ARGV[3])
if ttl > 0 then
  redis.call("SET", KEYS[1], ARGV[2], "PX", ttl)
else
  redis.call("SET", KEYS[1], ARGV[2])
end
return 1
`

var compareAndSwapLua = redis.NewScript(compareAndSwapScript)

// RedisKV implements KV on top of a go-redis universal client. The zero value
// is not usable; construct with NewRedisKV.
type RedisKV struct {
	client redis.UniversalClient
}

// NewRedisKV wraps an existing client. The caller keeps ownership of the
// client's lifecycle.
func NewRedisKV(client redis.UniversalClient) *RedisKV {
	return &RedisKV{client: client}
}

// Get implements KV.
func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return data, nil
}

// Set implements KV.
func (r *RedisKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Delete implements KV.
func (r *RedisKV) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Increment implements KV.
func (r *RedisKV) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if count == 1 && ttl > 0 {
		// Fixed-window semantics: set TTL only for the first hit in the window.
		if err := r.client.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	return count, nil
}

// CompareAndSwap implements KV. Values handled through this method must never
// be empty; the record codecs guarantee that by always emitting a version
// byte first.
func (r *RedisKV) CompareAndSwap(ctx context.Context, key string, expected, next []byte, ttl time.Duration) (bool, error) {
	if ttl < 0 {
		ttl = 0
	}
	res, err := compareAndSwapLua.Run(ctx, r.client, []string{key},
		expected, next, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return res == 1, nil
}

// TTL implements KV.
func (r *RedisKV) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := r.client.PTTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	// PTTL reports -2 for a missing key and -1 for a key without expiry.
	switch {
	case d == -2:
		return 0, ErrNotFound
	case d < 0:
		return 0, nil
	}
	return d, nil
}

// Ping implements KV.
func (r *RedisKV) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
