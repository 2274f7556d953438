// Package sandbox emulates the State service HTTP API for local development
// and tests. API serves the routes from a pluggable Store on net/http; the
// gin front end lives in package server and the Redis store in redisstore.
package sandbox

import (
	"context"
	"time"

	"github.com/adobe/aio-lib-state-go/internal/stateapi"
)

// Entry is a stored value and its expiration.
type Entry struct {
	Value     string
	ExpiresAt time.Time
}

// Store keeps the containers served by the sandbox. Every method is scoped
// to one namespace; expired entries are never returned.
type Store interface {
	Get(ctx context.Context, namespace, key string) (Entry, bool, error)
	Put(ctx context.Context, namespace, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, namespace, key string) (bool, error)
	// DeleteMatching removes the keys matching the glob and returns how many
	// were removed.
	DeleteMatching(ctx context.Context, namespace, match string) (int, error)
	Any(ctx context.Context, namespace string) (bool, error)
	Stats(ctx context.Context, namespace string) (stateapi.Stats, error)
	// Scan returns up to roughly count keys matching the glob starting at
	// cursor, and the cursor of the next page; 0 ends the scan.
	Scan(ctx context.Context, namespace, match string, cursor uint64, count int) ([]string, uint64, error)
}
