package cache

import (
	"context"
	"errors"
	"time"

	"gallery/config"
	"gallery/logging"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares the cache between server instances
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Init switches to Redis when configured, keeping the in-process store otherwise
func Init() {
	if config.REDIS_ADDR == "" {
		return
	}
	client := redis.NewClient(&redis.Options{
		Addr:     config.REDIS_ADDR,
		Password: config.REDIS_PASSWORD,
		DB:       config.REDIS_DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		logging.Error("Redis unreachable, using in-process cache", logging.String("addr", config.REDIS_ADDR), logging.Err(err))
		return
	}
	SetStore(NewRedisStore(client))
	logging.Info("Using Redis cache", logging.String("addr", config.REDIS_ADDR))
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) Incr(ctx context.Context, key string) (int64, error) {
	return s.client.Incr(ctx, key).Result()
}

func (s *RedisStore) Counter(ctx context.Context, key string) (int64, error) {
	n, err := s.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}
