package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Limiter is a Redis-backed token bucket. The CMS uses it to throttle
// credential guessing on the login endpoint, keyed by client address.
type Limiter struct {
	redis    *redis.Client
	capacity int64         // Maximum number of tokens
	refill   int64         // Number of tokens to refill per window
	window   time.Duration // Refill window
}

func NewLimiter(redisClient *redis.Client, capacity, refillRate int64) *Limiter {
	return &Limiter{
		redis:    redisClient,
		capacity: capacity,
		refill:   refillRate,
		window:   time.Minute,
	}
}

// Allow consumes one token for the given subject and action. It returns
// true while tokens remain, false once the bucket is empty.
func (l *Limiter) Allow(ctx context.Context, subject, action string) (bool, error) {
	key := fmt.Sprintf("throttle:%s:%s", action, subject)

	// Lua script keeps the read-refill-consume cycle atomic
	luaScript := `
		local key = KEYS[1]
		local capacity = tonumber(ARGV[1])
		local refill_rate = tonumber(ARGV[2])
		local window = tonumber(ARGV[3])
		local now = tonumber(ARGV[4])

		local bucket = redis.call('HMGET', key, 'tokens', 'last_refill')
		local tokens = tonumber(bucket[1]) or capacity
		local last_refill = tonumber(bucket[2]) or now

		local time_passed = now - last_refill
		local tokens_to_add = math.floor((time_passed / window) * refill_rate)

		if tokens_to_add > 0 then
			tokens = math.min(capacity, tokens + tokens_to_add)
			last_refill = now
		end

		if tokens > 0 then
			tokens = tokens - 1
			redis.call('HMSET', key, 'tokens', tokens, 'last_refill', last_refill)
			redis.call('EXPIRE', key, window * 2)
			return 1
		else
			redis.call('HMSET', key, 'tokens', tokens, 'last_refill', last_refill)
			redis.call('EXPIRE', key, window * 2)
			return 0
		end
	`

	now := time.Now().Unix()
	result, err := l.redis.Eval(ctx, luaScript, []string{key},
		l.capacity, l.refill, int64(l.window.Seconds()), now).Result()

	if err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}

	allowed, ok := result.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected result type from rate limit script")
	}

	return allowed == 1, nil
}

// Reset clears the bucket for a subject. Called after a successful login
// so a legitimate user who fumbled their password is not locked out.
func (l *Limiter) Reset(ctx context.Context, subject, action string) error {
	key := fmt.Sprintf("throttle:%s:%s", action, subject)
	return l.redis.Del(ctx, key).Err()
}
