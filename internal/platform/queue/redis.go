package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"globalnews_translator/internal/platform/config"

	"github.com/redis/go-redis/v9"
)

// signalBacklog bounds the wake-up list; notifications are hints, the store is
// the source of truth for what is queued.
const signalBacklog = 1024

func ConnectRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("queue: redis ping %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}

// RedisSignal wakes dispatchers across processes sharing one Redis.
type RedisSignal struct {
	rdb *redis.Client
	key string
}

func NewRedisSignal(rdb *redis.Client, key string) *RedisSignal {
	return &RedisSignal{rdb: rdb, key: key}
}

func (s *RedisSignal) Notify(ctx context.Context, jobID string) error {
	pipe := s.rdb.TxPipeline()
	pipe.LPush(ctx, s.key, jobID)
	pipe.LTrim(ctx, s.key, 0, signalBacklog-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("queue: notify %s: %w", jobID, err)
	}
	return nil
}

func (s *RedisSignal) Wait(ctx context.Context, timeout time.Duration) (bool, error) {
	if timeout <= 0 {
		timeout = time.Second // BRPOP treats 0 as block forever
	}
	_, err := s.rdb.BRPop(ctx, timeout, s.key).Result()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
		return false, nil
	case ctx.Err() != nil:
		return false, ctx.Err()
	default:
		return false, fmt.Errorf("queue: wait: %w", err)
	}
}
