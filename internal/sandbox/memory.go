package sandbox

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/adobe/aio-lib-state-go/internal/stateapi"
)

type entry struct {
	value     string
	expiresAt time.Time
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryStore implements Store in process memory with TTL bookkeeping.
type MemoryStore struct {
	mu         sync.Mutex
	containers map[string]map[string]*entry
	now        func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock overrides the clock used for TTL bookkeeping (useful in tests).
func WithClock(fn func() time.Time) MemoryOption {
	return func(m *MemoryStore) {
		if fn != nil {
			m.now = fn
		}
	}
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{
		containers: make(map[string]map[string]*entry),
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MemoryStore) clock() time.Time {
	if m.now == nil {
		return time.Now().UTC()
	}
	return m.now()
}

// live returns the container after evicting expired entries. Callers hold mu.
func (m *MemoryStore) live(namespace string) map[string]*entry {
	bucket := m.containers[namespace]
	if bucket == nil {
		return nil
	}
	now := m.clock()
	for key, ent := range bucket {
		if ent.expired(now) {
			delete(bucket, key)
		}
	}
	if len(bucket) == 0 {
		delete(m.containers, namespace)
		return nil
	}
	return bucket
}

// matching returns the sorted live keys matching the glob. Callers hold mu.
func (m *MemoryStore) matching(namespace, match string) ([]string, error) {
	bucket := m.live(namespace)
	keys := make([]string, 0, len(bucket))
	for key := range bucket {
		ok, err := path.Match(match, key)
		if err != nil {
			return nil, fmt.Errorf("sandbox: invalid match %q: %w", match, err)
		}
		if ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryStore) Get(ctx context.Context, namespace, key string) (Entry, bool, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	ent, ok := m.live(namespace)[key]
	if !ok {
		return Entry{}, false, nil
	}
	return Entry{Value: ent.value, ExpiresAt: ent.expiresAt}, true, nil
}

func (m *MemoryStore) Put(ctx context.Context, namespace, key, value string, ttl time.Duration) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("sandbox: key is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	bucket := m.containers[namespace]
	if bucket == nil {
		bucket = make(map[string]*entry)
		m.containers[namespace] = bucket
	}
	ent := &entry{value: value}
	if ttl > 0 {
		ent.expiresAt = m.clock().Add(ttl)
	}
	bucket[key] = ent
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, namespace, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	bucket := m.live(namespace)
	if _, ok := bucket[key]; !ok {
		return false, nil
	}
	delete(bucket, key)
	if len(bucket) == 0 {
		delete(m.containers, namespace)
	}
	return true, nil
}

func (m *MemoryStore) DeleteMatching(ctx context.Context, namespace, match string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	keys, err := m.matching(namespace, match)
	if err != nil {
		return 0, err
	}
	bucket := m.containers[namespace]
	for _, key := range keys {
		delete(bucket, key)
	}
	if len(bucket) == 0 {
		delete(m.containers, namespace)
	}
	return len(keys), nil
}

func (m *MemoryStore) Any(ctx context.Context, namespace string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live(namespace)) > 0, nil
}

func (m *MemoryStore) Stats(ctx context.Context, namespace string) (stateapi.Stats, error) {
	if err := ctx.Err(); err != nil {
		return stateapi.Stats{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var stats stateapi.Stats
	for key, ent := range m.live(namespace) {
		stats.Keys++
		stats.BytesKeys += int64(len(key))
		stats.BytesValues += int64(len(ent.value))
	}
	return stats, nil
}

// Scan pages through the sorted matching keys; the cursor is an offset.
func (m *MemoryStore) Scan(ctx context.Context, namespace, match string, cursor uint64, count int) ([]string, uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	if count <= 0 {
		count = stateapi.MinListCountHint
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	keys, err := m.matching(namespace, match)
	if err != nil {
		return nil, 0, err
	}
	if cursor >= uint64(len(keys)) {
		return []string{}, 0, nil
	}
	start := int(cursor)
	end := start + count
	if end >= len(keys) {
		return append([]string(nil), keys[start:]...), 0, nil
	}
	return append([]string(nil), keys[start:end]...), uint64(end), nil
}
