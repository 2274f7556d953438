package state

import (
	"fmt"
	"unicode/utf8"

	"github.com/adobe/aio-lib-state-go/internal/stateapi"
)

// ValidateKey checks key against the key pattern.
func ValidateKey(key string) error {
	if !stateapi.ValidKey(key) {
		return badArgument(
			fmt.Sprintf("invalid key %q: must match pattern %s", truncate(key), stateapi.KeyPattern),
			map[string]any{"key": truncate(key)},
		)
	}
	return nil
}

// ValidateValue rejects values that are not UTF-8 text or exceed
// MaxValueSize bytes.
func ValidateValue(value string) error {
	if !utf8.ValidString(value) {
		return badArgument(
			"invalid value: must be a UTF-8 string, binary values are not supported",
			map[string]any{"valueLength": len(value)},
		)
	}
	if len(value) > MaxValueSize {
		return newError(KindPayloadTooLarge,
			fmt.Sprintf("value is too large: %d bytes exceeds the limit of %d bytes", len(value), MaxValueSize),
			map[string]any{"valueLength": len(value)}, nil)
	}
	return nil
}

// ValidateTTL accepts TTLs in [0, MaxTTLSeconds]; zero means the default.
func ValidateTTL(ttl int) error {
	switch {
	case ttl < 0:
		return badArgument(
			fmt.Sprintf("invalid ttl %d: must be >= 0, infinite TTL is not supported", ttl),
			map[string]any{"ttl": ttl},
		)
	case ttl > MaxTTLSeconds:
		return badArgument(
			fmt.Sprintf("invalid ttl %d: must be <= 365 days (%d seconds)", ttl, MaxTTLSeconds),
			map[string]any{"ttl": ttl},
		)
	}
	return nil
}

// ValidateMatch checks a glob pattern against the match pattern.
func ValidateMatch(pattern string) error {
	if !stateapi.ValidMatch(pattern) {
		return badArgument(
			fmt.Sprintf("invalid match %q: must match pattern %s", truncate(pattern), stateapi.MatchPattern),
			map[string]any{"match": truncate(pattern)},
		)
	}
	return nil
}

// ValidateCountHint accepts hints in [MinListCountHint, MaxListCountHint].
func ValidateCountHint(n int) error {
	if n < MinListCountHint || n > MaxListCountHint {
		return badArgument(
			fmt.Sprintf("invalid countHint %d: must be in the [%d,%d] range", n, MinListCountHint, MaxListCountHint),
			map[string]any{"countHint": n},
		)
	}
	return nil
}

// truncate keeps oversized keys out of messages.
func truncate(s string) string {
	const max = 64
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
