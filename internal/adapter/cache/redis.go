package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces every key this service writes.
const DefaultKeyPrefix = "bitcoin-investment-api"

// NewRedisClient builds the process-wide client shared by the cache and the stream queue.
func NewRedisClient(ctx context.Context, addr, password string, db, poolSize int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: poolSize,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

type RedisAdapter struct {
	client *redis.Client
	prefix string
}

func NewRedisAdapter(client *redis.Client, prefix string) *RedisAdapter {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisAdapter{
		client: client,
		prefix: prefix,
	}
}

func (a *RedisAdapter) key(k string) string {
	return a.prefix + ":" + k
}

func (a *RedisAdapter) Ping(ctx context.Context) error {
	return a.client.Ping(ctx).Err()
}

func (a *RedisAdapter) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := a.client.Get(ctx, a.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get %s from redis: %w", key, err)
	}
	return val, true, nil
}

// SetIfAbsent issues SET key value EX ttl NX.
func (a *RedisAdapter) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	stored, err := a.client.SetNX(ctx, a.key(key), value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to set %s in redis: %w", key, err)
	}
	return stored, nil
}

// Close is a no-op: the client is owned by whoever created it.
func (a *RedisAdapter) Close() error {
	return nil
}
