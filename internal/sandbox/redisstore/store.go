// Package redisstore backs the sandbox with a Redis database.
package redisstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/adobe/aio-lib-state-go/internal/sandbox"
	"github.com/adobe/aio-lib-state-go/internal/stateapi"
)

const keyPrefix = "state:"

// Store implements sandbox.Store on top of Redis. Each namespace maps to
// the key prefix "state:<namespace>:" and Redis handles expiry.
type Store struct {
	client *redis.Client
}

var _ sandbox.Store = (*Store)(nil)

// New wraps an existing client.
func New(client *redis.Client) *Store {
	return &Store{client: client}
}

func containerPrefix(namespace string) string {
	return keyPrefix + namespace + ":"
}

// escapeGlob quotes the Redis glob metacharacters of a literal prefix.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) Get(ctx context.Context, namespace, key string) (sandbox.Entry, bool, error) {
	full := containerPrefix(namespace) + key
	pipe := s.client.Pipeline()
	getCmd := pipe.Get(ctx, full)
	ttlCmd := pipe.PTTL(ctx, full)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return sandbox.Entry{}, false, err
	}

	value, err := getCmd.Result()
	if errors.Is(err, redis.Nil) {
		return sandbox.Entry{}, false, nil
	}
	if err != nil {
		return sandbox.Entry{}, false, err
	}
	ent := sandbox.Entry{Value: value}
	if ttl, err := ttlCmd.Result(); err == nil && ttl > 0 {
		ent.ExpiresAt = time.Now().UTC().Add(ttl)
	}
	return ent, true, nil
}

func (s *Store) Put(ctx context.Context, namespace, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, containerPrefix(namespace)+key, value, ttl).Err()
}

func (s *Store) Delete(ctx context.Context, namespace, key string) (bool, error) {
	n, err := s.client.Del(ctx, containerPrefix(namespace)+key).Result()
	return n > 0, err
}

func (s *Store) DeleteMatching(ctx context.Context, namespace, match string) (int, error) {
	prefix := containerPrefix(namespace)
	iter := s.client.Scan(ctx, 0, escapeGlob(prefix)+match, stateapi.MaxListCountHint).Iterator()
	batch := make([]string, 0, stateapi.MaxListCountHint)
	deleted := 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := s.client.Del(ctx, batch...).Result()
		deleted += int(n)
		batch = batch[:0]
		return err
	}
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := flush(); err != nil {
				return deleted, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, err
	}
	return deleted, flush()
}

func (s *Store) Any(ctx context.Context, namespace string) (bool, error) {
	iter := s.client.Scan(ctx, 0, escapeGlob(containerPrefix(namespace))+"*", stateapi.MinListCountHint).Iterator()
	if iter.Next(ctx) {
		return true, nil
	}
	return false, iter.Err()
}

func (s *Store) Stats(ctx context.Context, namespace string) (stateapi.Stats, error) {
	prefix := containerPrefix(namespace)
	iter := s.client.Scan(ctx, 0, escapeGlob(prefix)+"*", stateapi.MaxListCountHint).Iterator()
	var stats stateapi.Stats
	for iter.Next(ctx) {
		full := iter.Val()
		size, err := s.client.StrLen(ctx, full).Result()
		if err != nil {
			return stateapi.Stats{}, err
		}
		stats.Keys++
		stats.BytesKeys += int64(len(full) - len(prefix))
		stats.BytesValues += size
	}
	return stats, iter.Err()
}

// Scan maps directly onto SCAN, so pages may repeat keys.
func (s *Store) Scan(ctx context.Context, namespace, match string, cursor uint64, count int) ([]string, uint64, error) {
	prefix := containerPrefix(namespace)
	raw, next, err := s.client.Scan(ctx, cursor, escapeGlob(prefix)+match, int64(count)).Result()
	if err != nil {
		return nil, 0, err
	}
	keys := make([]string, 0, len(raw))
	for _, full := range raw {
		keys = append(keys, strings.TrimPrefix(full, prefix))
	}
	return keys, next, nil
}
