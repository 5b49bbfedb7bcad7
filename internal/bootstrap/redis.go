package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stackpilot/stackpilot-backend/internal/platform/logger"
)

// OpenRedis parses REDIS_URL and pings once. An unreachable server is only
// logged: the history cache and rate limiter degrade without it.
func OpenRedis(ctx context.Context, url string, log *logger.Logger) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	opt.DialTimeout = 2 * time.Second
	opt.ReadTimeout = time.Second
	opt.WriteTimeout = time.Second

	client := redis.NewClient(opt)

	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		log.Warn("redis not reachable at startup, continuing degraded", "addr", opt.Addr, "error", err)
	}
	return client, nil
}
