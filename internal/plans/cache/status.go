package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stackpilot/stackpilot-backend/internal/plans/domain"
)

const (
	statusKeyPrefix = "generation:" // generation:{plan_id} -> pending|saved|failed|skipped
	statusTTL       = time.Hour
)

// StatusStore records the persistence outcome of each generation so clients
// can poll it after the stream ends.
type StatusStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewStatusStore(client redis.UniversalClient) *StatusStore {
	return &StatusStore{client: client, ttl: statusTTL}
}

func (s *StatusStore) Set(ctx context.Context, id string, status domain.GenerationStatus) error {
	if err := s.client.Set(ctx, statusKeyPrefix+id, string(status), s.ttl).Err(); err != nil {
		return fmt.Errorf("set generation status: %w", err)
	}
	return nil
}

func (s *StatusStore) Get(ctx context.Context, id string) (domain.GenerationStatus, error) {
	v, err := s.client.Get(ctx, statusKeyPrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get generation status: %w", err)
	}
	return domain.GenerationStatus(v), nil
}
