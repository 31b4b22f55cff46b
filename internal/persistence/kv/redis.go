package kv

import (
	"context"
	"fmt"

	"github.com/zeromicro/go-zero/core/stores/redis"

	cachekeys "cointrack/internal/cache"
)

// redisClient is the part of *redis.Redis the store uses.
type redisClient interface {
	GetCtx(ctx context.Context, key string) (string, error)
	SetCtx(ctx context.Context, key, value string) error
}

// RedisStore keeps values under namespaced Redis string keys without expiry.
type RedisStore struct {
	client redisClient
}

// NewRedisStore connects to the configured Redis node.
func NewRedisStore(conf redis.RedisConf) (*RedisStore, error) {
	client, err := redis.NewRedis(conf)
	if err != nil {
		return nil, fmt.Errorf("kv: connect redis %s: %w", conf.Host, err)
	}
	return &RedisStore{client: client}, nil
}

func newRedisStoreWithClient(client redisClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Load(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.GetCtx(ctx, cachekeys.LedgerKey(key))
	if err != nil {
		return nil, fmt.Errorf("kv: redis get %s: %w", key, err)
	}
	if val == "" {
		return nil, nil
	}
	return []byte(val), nil
}

func (s *RedisStore) Save(ctx context.Context, key string, value []byte) error {
	if err := s.client.SetCtx(ctx, cachekeys.LedgerKey(key), string(value)); err != nil {
		return fmt.Errorf("kv: redis set %s: %w", key, err)
	}
	return nil
}
