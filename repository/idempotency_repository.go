package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const idemPending = "pending"

// RedisIdempotencyRepository stores placement keys as
// idem:order:<key> -> "pending" | <order id>.
type RedisIdempotencyRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisIdempotencyRepository(client *redis.Client, ttl time.Duration) *RedisIdempotencyRepository {
	return &RedisIdempotencyRepository{client: client, ttl: ttl}
}

func (r *RedisIdempotencyRepository) getKey(key string) string {
	return "idem:order:" + key
}

func (r *RedisIdempotencyRepository) Reserve(ctx context.Context, key string) (string, bool, error) {
	ok, err := r.client.SetNX(ctx, r.getKey(key), idemPending, r.ttl).Result()
	if err != nil {
		return "", false, err
	}
	if ok {
		return "", true, nil
	}

	val, err := r.client.Get(ctx, r.getKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET; try once more
		ok, err = r.client.SetNX(ctx, r.getKey(key), idemPending, r.ttl).Result()
		return "", ok, err
	}
	if err != nil {
		return "", false, err
	}
	if val == idemPending {
		return "", false, nil
	}
	return val, false, nil
}

func (r *RedisIdempotencyRepository) Complete(ctx context.Context, key, orderID string) error {
	return r.client.Set(ctx, r.getKey(key), orderID, r.ttl).Err()
}

func (r *RedisIdempotencyRepository) Release(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.getKey(key)).Err()
}
