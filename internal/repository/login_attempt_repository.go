package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginAttemptRepository counts failed logins per key. The count expires
// one window after the first failure.
type LoginAttemptRepository interface {
	Failures(ctx context.Context, key string) (int, error)
	RecordFailure(ctx context.Context, key string, window time.Duration) (int, error)
	Reset(ctx context.Context, key string) error
}

type redisLoginAttemptRepository struct {
	client *redis.Client
}

// NewRedisLoginAttemptRepository returns a Redis-backed implementation.
func NewRedisLoginAttemptRepository(client *redis.Client) LoginAttemptRepository {
	return &redisLoginAttemptRepository{client: client}
}

func loginFailKey(key string) string {
	return "login:fail:" + key
}

func (r *redisLoginAttemptRepository) Failures(ctx context.Context, key string) (int, error) {
	n, err := r.client.Get(ctx, loginFailKey(key)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

func (r *redisLoginAttemptRepository) RecordFailure(ctx context.Context, key string, window time.Duration) (int, error) {
	k := loginFailKey(key)
	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.ExpireNX(ctx, k, window)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(incr.Val()), nil
}

func (r *redisLoginAttemptRepository) Reset(ctx context.Context, key string) error {
	return r.client.Del(ctx, loginFailKey(key)).Err()
}
