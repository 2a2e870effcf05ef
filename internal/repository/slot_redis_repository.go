package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

// RedisSlotRepository stores each collection payload as a plain Redis string.
type RedisSlotRepository struct {
	client redis.Cmdable
	logger *zap.Logger
}

// NewRedisSlotRepository constructs a Redis backed slot repository.
func NewRedisSlotRepository(client redis.Cmdable, logger *zap.Logger) *RedisSlotRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisSlotRepository{client: client, logger: logger}
}

// Get reads the payload stored at key.
func (r *RedisSlotRepository) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, appErrors.ErrSlotNotFound
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return raw, nil
}

// Set overwrites the payload at key without expiry.
func (r *RedisSlotRepository) Set(ctx context.Context, key string, payload []byte) error {
	if err := r.client.Set(ctx, key, payload, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	r.logger.Debug("slot written", zap.String("key", key), zap.Int("bytes", len(payload)))
	return nil
}
