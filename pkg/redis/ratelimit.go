package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RateLimiter implements a sliding window limit backed by a sorted set
type RateLimiter struct {
	client *Client
	prefix string
}

// RateLimitConfig defines rate limit parameters
type RateLimitConfig struct {
	Key    string
	Limit  int
	Window time.Duration
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(client *Client, prefix string) *RateLimiter {
	return &RateLimiter{client: client, prefix: prefix}
}

// slidingWindowSrc scores each request by its time; members are unique
// so requests in the same millisecond count separately
const slidingWindowSrc = `
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])
	local member = ARGV[5]

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
	local count = redis.call('ZCARD', key)

	if count < limit then
		redis.call('ZADD', key, now, member)
		redis.call('PEXPIRE', key, window_ms)
		return {1, limit - count - 1}
	end
	return {0, 0}
`

var slidingWindow = redis.NewScript(slidingWindowSrc)

// windowMember is the sorted set member of one request at now (ms)
func windowMember(now int64) string {
	return fmt.Sprintf("%d:%s", now, uuid.NewString())
}

// Allow reports whether one more request fits in the window.
// Returns (allowed, remaining, error). Disabled Redis allows everything.
func (r *RateLimiter) Allow(ctx context.Context, cfg RateLimitConfig) (bool, int, error) {
	if !r.client.Enabled() {
		return true, cfg.Limit, nil
	}

	key := fmt.Sprintf("%s:ratelimit:%s", r.prefix, cfg.Key)
	now := time.Now().UnixMilli()

	result, err := slidingWindow.Run(ctx, r.client.Redis(), []string{key},
		now,
		now-cfg.Window.Milliseconds(),
		cfg.Limit,
		cfg.Window.Milliseconds(),
		windowMember(now),
	).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit script failed: %w", err)
	}

	return result[0] == 1, int(result[1]), nil
}

// Wait blocks until a request is allowed or ctx is done
func (r *RateLimiter) Wait(ctx context.Context, cfg RateLimitConfig) error {
	for {
		allowed, _, err := r.Allow(ctx, cfg)
		if err != nil {
			return err
		}
		if allowed {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// ForClient scopes a limit to one caller (IP address, user id)
func (cfg RateLimitConfig) ForClient(id string) RateLimitConfig {
	cfg.Key = cfg.Key + ":" + id
	return cfg
}

var (
	// LeadSubmitRateLimit caps lead form submissions per client
	LeadSubmitRateLimit = RateLimitConfig{
		Key:    "leads",
		Limit:  5,
		Window: time.Minute,
	}

	// WhatsAppVerifyRateLimit caps number checks per client
	WhatsAppVerifyRateLimit = RateLimitConfig{
		Key:    "whatsapp",
		Limit:  20,
		Window: time.Minute,
	}
)
