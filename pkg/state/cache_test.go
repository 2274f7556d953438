package state

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitNeverShares(t *testing.T) {
	cfg := Config{Namespace: "ns", APIKey: "k"}
	a, err := Init(context.Background(), cfg)
	require.NoError(t, err)
	b, err := Init(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotSame(t, a, b)
}

func TestClientCacheReusesByFingerprint(t *testing.T) {
	cache, err := NewClientCache(2)
	require.NoError(t, err)
	ctx := context.Background()

	a, err := cache.Get(ctx, Config{Namespace: "ns", APIKey: "k"})
	require.NoError(t, err)
	b, err := cache.Get(ctx, Config{Namespace: "ns", APIKey: "k", Region: "amer", Env: ProdEnv})
	require.NoError(t, err)
	assert.Same(t, a, b)

	c, err := cache.Get(ctx, Config{Namespace: "ns", APIKey: "other"})
	require.NoError(t, err)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, cache.Len())

	_, err = cache.Get(ctx, Config{Namespace: "ns2", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, 2, cache.Len())

	cache.Purge()
	assert.Zero(t, cache.Len())
}

func TestClientCacheRejectsInvalidConfig(t *testing.T) {
	cache, err := NewClientCache(1)
	require.NoError(t, err)

	_, err = cache.Get(context.Background(), Config{Namespace: "ns"})
	assert.ErrorIs(t, err, ErrBadArgument)
	assert.Zero(t, cache.Len())

	_, err = NewClientCache(0)
	assert.Error(t, err)
}

func TestFingerprint(t *testing.T) {
	fp := Fingerprint("ns", "k", "amer", "prod", "")
	assert.Len(t, fp, 64)
	assert.NotContains(t, fp, "k")
	assert.Equal(t, fp, Fingerprint("ns", "k", "amer", "prod", ""))
	assert.NotEqual(t, fp, Fingerprint("nsk", "", "amer", "prod", ""))
}
