package state

import (
	"time"

	"github.com/adobe/aio-lib-state-go/internal/stateapi"
)

const (
	// APIVersion is the State service API version targeted by the client.
	APIVersion = stateapi.APIVersion

	// MaxTTLSeconds is the longest accepted TTL (365 days).
	MaxTTLSeconds = stateapi.MaxTTLSeconds
	// DefaultTTLSeconds is applied by the service when no TTL is sent.
	DefaultTTLSeconds = stateapi.DefaultTTLSeconds

	MinListCountHint = stateapi.MinListCountHint
	MaxListCountHint = stateapi.MaxListCountHint

	MaxKeyLength = stateapi.MaxKeyLength
	// MaxValueSize is the largest value accepted by Put, in bytes.
	MaxValueSize = stateapi.MaxValueSize
)

// GetResult is a value read from the store.
type GetResult struct {
	Value string
	// Expiration is ExpiresAt rendered as ISO-8601 with millisecond precision.
	Expiration string
	ExpiresAt  time.Time
}

// PutOptions controls write semantics for Put.
type PutOptions struct {
	// TTL in seconds. Zero leaves the service default (24 hours) in place.
	TTL int
}

// DeleteAllOptions selects the keys removed by DeleteAll.
type DeleteAllOptions struct {
	// Match is a glob pattern over keys; it is mandatory. Use "*" to remove
	// every key of the container.
	Match string
}

// ListOptions controls List.
type ListOptions struct {
	// Match is a glob pattern over keys; empty lists every key.
	Match string
	// CountHint is an approximate page size in [MinListCountHint,
	// MaxListCountHint]. Zero lets the service pick.
	CountHint int
}

// Stats aggregates the content of a container.
type Stats = stateapi.Stats

// DeleteAllResult reports how many keys DeleteAll removed.
type DeleteAllResult = stateapi.DeleteAllResult
