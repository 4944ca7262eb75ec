package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrResetTokenNotFound is returned when a reset token is unknown, expired,
// or already used.
var ErrResetTokenNotFound = errors.New("reset token not found")

// ResetTokenRepository keeps single-use password reset tokens. Tokens are
// addressed by their digest; the plaintext never reaches storage.
type ResetTokenRepository interface {
	Save(ctx context.Context, digest, accountID string, ttl time.Duration) error
	// Consume returns the account id and deletes the token atomically.
	Consume(ctx context.Context, digest string) (string, error)
}

type redisResetTokenRepository struct {
	client *redis.Client
}

// NewRedisResetTokenRepository returns a Redis-backed implementation.
func NewRedisResetTokenRepository(client *redis.Client) ResetTokenRepository {
	return &redisResetTokenRepository{client: client}
}

func resetKey(digest string) string {
	return "reset:" + digest
}

func (r *redisResetTokenRepository) Save(ctx context.Context, digest, accountID string, ttl time.Duration) error {
	return r.client.Set(ctx, resetKey(digest), accountID, ttl).Err()
}

func (r *redisResetTokenRepository) Consume(ctx context.Context, digest string) (string, error) {
	accountID, err := r.client.GetDel(ctx, resetKey(digest)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrResetTokenNotFound
	}
	if err != nil {
		return "", err
	}
	return accountID, nil
}
