package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// takeScript resets an expired window and decrements the remaining budget in
// one round trip. Returns {allowed, remaining, ttl_ms}.
var takeScript = redis.NewScript(`
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local v = redis.call('GET', KEYS[1])
if not v then
	redis.call('SET', KEYS[1], limit - 1, 'PX', window)
	return {1, limit - 1, window}
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
	ttl = window
	redis.call('PEXPIRE', KEYS[1], window)
end
local remaining = tonumber(v)
if remaining <= 0 then
	return {0, 0, ttl}
end
redis.call('DECR', KEYS[1])
return {1, remaining - 1, ttl}
`)

var _ Store = (*RedisStore)(nil)

// RedisStore shares one fixed window between every process using the same key.
type RedisStore struct {
	client redis.UniversalClient
	key    string
	limit  int
	window time.Duration
}

// NewRedisStore creates a Redis-backed store. A limit below one is raised to
// one.
func NewRedisStore(client redis.UniversalClient, key string, limit int, window time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		key:    key,
		limit:  max(limit, 1),
		window: window,
	}
}

// KeyForAPIKey derives a stable Redis key from an API key without storing
// the credential itself.
func KeyForAPIKey(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return "postgrid:ratelimit:" + hex.EncodeToString(sum[:8])
}

// Take implements Store.
func (s *RedisStore) Take(ctx context.Context, now time.Time) (Decision, error) {
	vals, err := takeScript.Run(ctx, s.client, []string{s.key}, s.limit, s.window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit store: %w", err)
	}
	if len(vals) != 3 {
		return Decision{}, fmt.Errorf("rate limit store: unexpected reply %v", vals)
	}
	return Decision{
		Allowed:   vals[0] == 1,
		Remaining: int(vals[1]),
		ResetAt:   now.Add(time.Duration(vals[2]) * time.Millisecond),
	}, nil
}

// Observe implements Store.
func (s *RedisStore) Observe(ctx context.Context, st State, now time.Time) error {
	if !st.HasRemaining {
		if st.ResetAt.After(now) {
			return s.client.PExpireAt(ctx, s.key, st.ResetAt).Err()
		}
		return nil
	}

	var ttl time.Duration = redis.KeepTTL
	if st.ResetAt.After(now) {
		ttl = st.ResetAt.Sub(now)
	}
	return s.client.Set(ctx, s.key, max(st.Remaining, 0), ttl).Err()
}

// Remaining implements Store.
func (s *RedisStore) Remaining(ctx context.Context, _ time.Time) (int, error) {
	v, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return s.limit, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("rate limit store: %w", err)
	}
	return n, nil
}
