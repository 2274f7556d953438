package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/adobe/aio-lib-state-go/internal/stateapi"
)

// SeedEntry is one key preloaded into a sandbox store.
type SeedEntry struct {
	Namespace  string `json:"namespace"`
	Key        string `json:"key"`
	Value      string `json:"value"`
	TTLSeconds int    `json:"ttl,omitempty"`
}

// LoadSeed reads a JSON array of SeedEntry from path.
func LoadSeed(path string) ([]SeedEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sandbox: read seed: %w", err)
	}
	var entries []SeedEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("sandbox: decode seed %s: %w", path, err)
	}
	return entries, nil
}

// Seed writes entries into store. A zero TTL gets the service default.
func Seed(ctx context.Context, store Store, entries []SeedEntry) error {
	for i, e := range entries {
		if e.Namespace == "" {
			return fmt.Errorf("sandbox: seed entry %d missing namespace", i)
		}
		if !stateapi.ValidKey(e.Key) {
			return fmt.Errorf("sandbox: seed entry %d has invalid key %q", i, e.Key)
		}
		ttl := e.TTLSeconds
		if ttl <= 0 || ttl > stateapi.MaxTTLSeconds {
			ttl = stateapi.DefaultTTLSeconds
		}
		if err := store.Put(ctx, e.Namespace, e.Key, e.Value, time.Duration(ttl)*time.Second); err != nil {
			return fmt.Errorf("sandbox: seed %s/%s: %w", e.Namespace, e.Key, err)
		}
	}
	return nil
}
