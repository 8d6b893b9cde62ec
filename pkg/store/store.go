// Package store defines the expiring key-value contract shared by every
// switchboard component, plus the Redis implementation used in production
// and an in-memory fake for tests.
//
// The contract is deliberately narrow: JSON values with per-key expiry,
// atomic list append, a reverse index for toll-free-number lookup, and an
// atomic slot claim used to bound concurrent calls per agent.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a key or index entry does not exist.
	ErrNotFound = errors.New("store: key not found")
)

// StateStore is the persistence contract injected into all components.
// Values are JSON-encoded; a ttl of zero means the key never expires.
type StateStore interface {
	// Get decodes the value at key into out.
	Get(ctx context.Context, key string, out any) error

	// SetWithExpiry stores value at key, replacing any previous value.
	SetWithExpiry(ctx context.Context, key string, value any, ttl time.Duration) error

	// ListAppend atomically appends value to the list at key.
	ListAppend(ctx context.Context, key string, value any) error

	// ListRange returns the JSON-encoded elements in [start, stop].
	// Negative indices count from the end, -1 being the last element.
	ListRange(ctx context.Context, key string, start, stop int64) ([][]byte, error)

	// Expire sets or refreshes the ttl on an existing key.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// ReverseIndexSet maps an index key (e.g. a toll-free number) to a
	// primary record id.
	ReverseIndexSet(ctx context.Context, indexKey, primaryID string) error

	// ReverseIndexSetNX maps an index key to a primary record id only if
	// the key is unclaimed, and reports whether the claim succeeded. Two
	// concurrent claims for the same key must not both succeed.
	ReverseIndexSetNX(ctx context.Context, indexKey, primaryID string) (bool, error)

	// ReverseIndexGet resolves an index key to the primary record id.
	ReverseIndexGet(ctx context.Context, indexKey string) (string, error)

	// ClaimSlot atomically increments the counter at key if it is below
	// max. It reports whether the claim succeeded and the counter value
	// after the call. Two concurrent claims against the last free slot
	// must not both succeed.
	ClaimSlot(ctx context.Context, key string, max int) (bool, int, error)

	// ReleaseSlot decrements the counter at key, never below zero.
	ReleaseSlot(ctx context.Context, key string) error
}
