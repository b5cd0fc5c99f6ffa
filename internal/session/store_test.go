package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tavolo/internal/bookingapi"
)

func newFileBacked(t *testing.T) (*FileStore, *bookingapi.Client, *Store) {
	t.Helper()
	creds := NewFileStore(filepath.Join(t.TempDir(), "credential"))
	client := bookingapi.New("http://127.0.0.1:0", creds, 0)
	return creds, client, NewStore(client)
}

func TestStore_LoginThenLogoutLeavesNothingBehind(t *testing.T) {
	ctx := context.Background()
	creds, client, store := newFileBacked(t)

	require.NoError(t, store.Login(ctx, "tok-1"))
	require.NoError(t, store.Logout(ctx))

	persisted, err := creds.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, persisted)
	assert.Empty(t, client.Credential())
	assert.False(t, store.Authenticated())

	// Logout with no credential installed is a no-op, not an error.
	require.NoError(t, store.Logout(ctx))
}

func TestStore_LoginIsSynchronouslyReadable(t *testing.T) {
	ctx := context.Background()
	_, client, store := newFileBacked(t)

	require.NoError(t, store.Login(ctx, "tok-2"))

	assert.Equal(t, "tok-2", store.Token())
	assert.Equal(t, "tok-2", client.Credential())
	assert.True(t, store.Authenticated())
}

func TestStore_ReloadAdoptsPersistedCredential(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "credential")

	creds := NewFileStore(path)
	client := bookingapi.New("http://127.0.0.1:0", creds, 0)
	store := NewStore(client)
	require.NoError(t, store.Login(ctx, "tok-3"))

	// Fresh client and store over the same slot, as after a restart.
	client2 := bookingapi.New("http://127.0.0.1:0", NewFileStore(path), 0)
	store2 := NewStore(client2)

	<-store2.Ready()
	assert.Equal(t, "tok-3", store2.Token())
	assert.Equal(t, "tok-3", client2.Credential())
}

func TestStore_SubscribersSeeEveryChange(t *testing.T) {
	ctx := context.Background()
	_, _, store := newFileBacked(t)

	var seen []string
	store.Subscribe(func(token string) { seen = append(seen, token) })

	require.NoError(t, store.Login(ctx, "a"))
	require.NoError(t, store.Login(ctx, "b"))
	require.NoError(t, store.Logout(ctx))

	assert.Equal(t, []string{"a", "b", ""}, seen)
}

func TestFileStore_ClearIsIdempotent(t *testing.T) {
	ctx := context.Background()
	creds := NewFileStore(filepath.Join(t.TempDir(), "credential"))

	require.NoError(t, creds.Clear(ctx))
	require.NoError(t, creds.Set(ctx, "tok"))
	require.NoError(t, creds.Clear(ctx))
	require.NoError(t, creds.Clear(ctx))

	val, err := creds.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, val)
}
