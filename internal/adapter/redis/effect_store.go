package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/FayezAlshami/DTC/internal/platform/logger"
	"github.com/redis/go-redis/v9"
)

const effectKeyPrefix = "effect:"

// EffectStore records completed side effects in Redis. A key is written
// once with SetNX, so the first dispatcher's result wins and a concurrent
// retry observes it instead of re-performing the effect.
type EffectStore struct {
	client *redis.Client
	logger logger.Logger
}

func NewEffectStore(client *redis.Client, log logger.Logger) *EffectStore {
	return &EffectStore{client: client, logger: log}
}

func (s *EffectStore) Done(ctx context.Context, key string) (string, bool, error) {
	result, err := s.client.Get(ctx, effectKeyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		s.logger.Errorf("Failed to read effect key %s: %v", key, err)
		return "", false, fmt.Errorf("failed to read effect key: %w", err)
	}
	return result, true, nil
}

func (s *EffectStore) MarkDone(ctx context.Context, key, result string, ttl time.Duration) error {
	err := s.client.SetNX(ctx, effectKeyPrefix+key, result, ttl).Err()
	if err != nil {
		s.logger.Errorf("Failed to mark effect key %s done: %v", key, err)
		return fmt.Errorf("failed to mark effect done: %w", err)
	}
	return nil
}
