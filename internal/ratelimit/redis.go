package ratelimit

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// checkScript atomically increments key's counter, seeding its TTL on first
// use, and returns {count, ttlMs} so the caller can compute allow/deny and
// retryAfter without a second round trip.
var checkScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {count, ttl}
`)

// RedisLimiter is the Redis-backed Limiter implementation, for rate limiting
// shared across multiple process instances.
type RedisLimiter struct {
	client  redis.UniversalClient
	presets map[string]Preset
	prefix  string
}

// NewRedisLimiter constructs a RedisLimiter backed by client, using presets
// (DefaultPresets if nil). keyPrefix namespaces all keys this limiter writes.
func NewRedisLimiter(client redis.UniversalClient, keyPrefix string, presets map[string]Preset) *RedisLimiter {
	if presets == nil {
		presets = DefaultPresets
	}
	return &RedisLimiter{client: client, presets: presets, prefix: keyPrefix}
}

func (l *RedisLimiter) redisKey(preset, key string) string {
	return fmt.Sprintf("%s:%s:%s", l.prefix, preset, key)
}

func (l *RedisLimiter) Check(ctx context.Context, preset, key string) (Result, error) {
	cfg, ok := l.presets[preset]
	if !ok {
		cfg = DefaultPresets[BucketStandard]
	}

	rk := l.redisKey(preset, key)
	res, err := checkScript.Run(ctx, l.client, []string{rk}, cfg.Window.Milliseconds()).Result()
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit: redis check failed: %w", err)
	}

	values, ok := res.([]interface{})
	if !ok || len(values) != 2 {
		return Result{}, fmt.Errorf("ratelimit: unexpected script result %#v", res)
	}
	count := toInt64(values[0])
	ttlMs := toInt64(values[1])

	if count > int64(cfg.Max) {
		retryAfter := int((ttlMs + 999) / 1000)
		if retryAfter < 0 {
			retryAfter = 0
		}
		return Result{Allowed: false, Remaining: 0, RetryAfter: retryAfter}, nil
	}

	return Result{Allowed: true, Remaining: cfg.Max - int(count)}, nil
}

// Sweep is a no-op for RedisLimiter: Redis expires keys on its own via the
// PEXPIRE set on first increment, so there is nothing to sweep client-side.
func (l *RedisLimiter) Sweep(ctx context.Context) (int, error) {
	return 0, nil
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}
