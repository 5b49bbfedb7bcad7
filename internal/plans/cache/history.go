package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stackpilot/stackpilot-backend/internal/plans/domain"
)

const (
	historyKeyPrefix  = "user:" // user:{user_id} -> {projects, count}
	defaultHistoryTTL = 300 * time.Second
)

// ErrMiss reports a key that is absent or expired.
var ErrMiss = errors.New("cache miss")

// HistoryCache holds serialized project lists per user.
type HistoryCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewHistoryCache(client redis.UniversalClient, ttl time.Duration) *HistoryCache {
	if ttl <= 0 {
		ttl = defaultHistoryTTL
	}
	return &HistoryCache{client: client, ttl: ttl}
}

func (c *HistoryCache) Get(ctx context.Context, userID string) (*domain.ProjectList, error) {
	data, err := c.client.Get(ctx, historyKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("get history cache: %w", err)
	}

	var list domain.ProjectList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("decode history cache: %w", err)
	}
	return &list, nil
}

func (c *HistoryCache) Set(ctx context.Context, userID string, list domain.ProjectList) error {
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode history cache: %w", err)
	}
	if err := c.client.Set(ctx, historyKey(userID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set history cache: %w", err)
	}
	return nil
}

func (c *HistoryCache) Invalidate(ctx context.Context, userID string) error {
	if err := c.client.Del(ctx, historyKey(userID)).Err(); err != nil {
		return fmt.Errorf("invalidate history cache: %w", err)
	}
	return nil
}

func historyKey(userID string) string {
	return historyKeyPrefix + userID
}
