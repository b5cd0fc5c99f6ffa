package session

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client)
}

func TestRedisStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newRedisStore(t)

	val, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, val)

	require.NoError(t, store.Set(ctx, "tok-redis"))
	val, err = store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-redis", val)

	require.NoError(t, store.Clear(ctx))
	val, err = store.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, val)

	// Clearing an empty slot is not an error.
	require.NoError(t, store.Clear(ctx))
}
