package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Returns {count, pttl}. The expiry is set only by the request that opens the window.
var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {count, redis.call("PTTL", KEYS[1])}
`)

const defaultRedisPrefix = "stackpilot:ratelimit"

// RedisLimiter shares fixed-window counters between instances.
type RedisLimiter struct {
	client  redis.UniversalClient
	prefix  string
	limit   int
	window  time.Duration
	timeout time.Duration
}

func NewRedisLimiter(client redis.UniversalClient, prefix string, limit int, win time.Duration) (*RedisLimiter, error) {
	if limit <= 0 || win <= 0 {
		return nil, errInvalidPolicy
	}
	if client == nil {
		return nil, fmt.Errorf("rate limiter redis client is required")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisLimiter{
		client:  client,
		prefix:  prefix,
		limit:   limit,
		window:  win,
		timeout: 2 * time.Second,
	}, nil
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	redisKey := l.prefix + ":" + normalizeKey(key)
	res, err := fixedWindowScript.Run(ctx, l.client, []string{redisKey}, l.window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit script: %w", err)
	}
	if len(res) != 2 {
		return Decision{}, fmt.Errorf("rate limit script: unexpected reply %v", res)
	}
	ttl := time.Duration(res[1]) * time.Millisecond
	return decide(res[0], l.limit, ttl), nil
}
