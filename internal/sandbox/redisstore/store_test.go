package redisstore_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adobe/aio-lib-state-go/internal/sandbox/redisstore"
)

// The Redis store is exercised only against a live server.
func newRedisStore(t *testing.T) (*redisstore.Store, string) {
	t.Helper()
	addr := os.Getenv("AIO_STATE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("AIO_STATE_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())

	ns := "test-" + uuid.NewString()
	store := redisstore.New(client)
	t.Cleanup(func() {
		_, _ = store.DeleteMatching(context.Background(), ns, "*")
	})
	return store, ns
}

func TestStoreRoundTrip(t *testing.T) {
	store, ns := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, ns, "k", "value", time.Minute))
	ent, ok, err := store.Get(ctx, ns, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "value", ent.Value)
	assert.WithinDuration(t, time.Now().Add(time.Minute), ent.ExpiresAt, 5*time.Second)

	stats, err := store.Stats(ctx, ns)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Keys)
	assert.EqualValues(t, 5, stats.BytesValues)

	deleted, err := store.Delete(ctx, ns, "k")
	require.NoError(t, err)
	assert.True(t, deleted)

	_, ok, err = store.Get(ctx, ns, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreScanAndDeleteMatching(t *testing.T) {
	store, ns := newRedisStore(t)
	ctx := context.Background()

	for i := range 30 {
		require.NoError(t, store.Put(ctx, ns, fmt.Sprintf("item.%d", i), "v", time.Minute))
	}

	seen := map[string]bool{}
	var cursor uint64
	for {
		keys, next, err := store.Scan(ctx, ns, "item.*", cursor, 10)
		require.NoError(t, err)
		for _, k := range keys {
			seen[k] = true
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	assert.Len(t, seen, 30)

	n, err := store.DeleteMatching(ctx, ns, "item.1*")
	require.NoError(t, err)
	assert.Equal(t, 11, n)

	found, err := store.Any(ctx, ns)
	require.NoError(t, err)
	assert.True(t, found)
}
