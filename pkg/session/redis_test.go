package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStoreWithClient(client, time.Hour), mr
}

func TestRedisStore_RoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	rec := &Record{
		LoginType:  LoginWeb,
		Redirect:   "https://app",
		State:      "nonce",
		SessionKey: "google;ana li;123",
	}
	require.NoError(t, store.Set(ctx, "sid-1", rec))

	got, err := store.Get(ctx, "sid-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec, got)
}

func TestRedisStore_MissReturnsNil(t *testing.T) {
	store, _ := newTestStore(t)

	got, err := store.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisStore_Delete(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "sid-1", &Record{SessionKey: "k"}))
	require.NoError(t, store.Delete(ctx, "sid-1"))

	got, err := store.Get(ctx, "sid-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Deleting an already-absent session still succeeds.
	assert.NoError(t, store.Delete(ctx, "sid-1"))
}

func TestRedisStore_TTLRefreshOnWrite(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "sid-1", &Record{SessionKey: "k"}))

	mr.FastForward(30 * time.Minute)
	require.NoError(t, store.Set(ctx, "sid-1", &Record{SessionKey: "k"}))

	mr.FastForward(45 * time.Minute)
	got, err := store.Get(ctx, "sid-1")
	require.NoError(t, err)
	assert.NotNil(t, got, "write should have refreshed the TTL")

	mr.FastForward(time.Hour)
	got, err = store.Get(ctx, "sid-1")
	require.NoError(t, err)
	assert.Nil(t, got, "session should have expired")
}

func TestRedisStore_CorruptRecordIsDropped(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	mr.Set(keyPrefix+"sid-1", "{not json")

	_, err := store.Get(ctx, "sid-1")
	assert.Error(t, err)

	// The corrupt entry is gone; the next read is a clean miss.
	got, err := store.Get(ctx, "sid-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisStore_Unreachable(t *testing.T) {
	store, mr := newTestStore(t)
	mr.Close()

	_, err := store.Get(context.Background(), "sid-1")
	assert.Error(t, err)
	assert.Error(t, store.Set(context.Background(), "sid-1", &Record{}))
}
