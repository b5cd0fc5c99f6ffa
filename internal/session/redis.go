package session

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

const credentialKey = "tavolo:credential"

// RedisStore persists the credential in a single Redis key, for deployments
// where the frontend runs on more than one node or restarts often.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed credential store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Get(ctx context.Context) (string, error) {
	val, err := r.client.Get(ctx, credentialKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", err
	}
	return val, nil
}

func (r *RedisStore) Set(ctx context.Context, token string) error {
	return r.client.Set(ctx, credentialKey, token, 0).Err()
}

func (r *RedisStore) Clear(ctx context.Context) error {
	return r.client.Del(ctx, credentialKey).Err()
}
