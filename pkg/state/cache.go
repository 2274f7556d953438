package state

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"
)

// ClientCache is a caller-owned, size-bounded cache of clients keyed by a
// fingerprint of their resolved credentials and endpoint. Init never
// consults it; callers that want to reuse clients hold a cache explicitly.
type ClientCache struct {
	mu      sync.Mutex
	clients *lru.Cache
}

// NewClientCache returns a cache holding at most size clients.
func NewClientCache(size int) (*ClientCache, error) {
	clients, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("state: new client cache: %w", err)
	}
	return &ClientCache{clients: clients}, nil
}

// Get returns the cached client for cfg's resolved identity, building and
// caching it on a miss. Clients with distinct executors or loggers but the
// same identity share one cache entry: the first one wins.
func (c *ClientCache) Get(ctx context.Context, cfg Config) (*Client, error) {
	rc, err := resolve(ctx, cfg)
	if err != nil {
		return nil, err
	}
	fp := rc.fingerprint()

	c.mu.Lock()
	defer c.mu.Unlock()
	if cached, ok := c.clients.Get(fp); ok {
		return cached.(*Client), nil
	}
	client, err := newClient(rc, cfg)
	if err != nil {
		return nil, err
	}
	c.clients.Add(fp, client)
	return client, nil
}

// Len returns the number of cached clients.
func (c *ClientCache) Len() int {
	return c.clients.Len()
}

// Purge drops every cached client.
func (c *ClientCache) Purge() {
	c.clients.Purge()
}

// Fingerprint returns a stable digest of a client identity. The api key
// only enters the digest, never the cache key in clear.
func Fingerprint(namespace, apiKey, region, env, endpoint string) string {
	h := sha256.New()
	for _, part := range []string{namespace, apiKey, region, env, endpoint} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (rc resolvedConfig) fingerprint() string {
	return Fingerprint(rc.namespace, rc.apiKey, rc.region, rc.env, rc.endpoint)
}
