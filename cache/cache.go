// Package cache defines the ephemeral key-value store contract used by
// the auth core, plus a Redis-backed implementation and an in-process
// one. Every entry carries its own TTL; single-use token redemption
// relies on Take being an atomic read-and-delete.
package cache

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
)

// TextCodeEntryNotFound tags cache misses.
const TextCodeEntryNotFound = "cache_entry_not_found"

// ErrNotFound is returned on a miss: the key never existed, expired,
// or was already taken.
var ErrNotFound = errors.New("cache entry not found", errors.CategoryNotFound).
	WithTextCode(TextCodeEntryNotFound).
	WithCode(errors.CodeNotFound)

// Cache is a key-value store with per-key TTL.
type Cache interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set writes the value under key with the given TTL. A zero TTL
	// stores the entry without expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// SetIfExists writes value and TTL only when the key is already
	// present, reporting whether the write happened. Used to refresh
	// a TTL without resurrecting an evicted entry.
	SetIfExists(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Take atomically reads and deletes the entry. Exactly one of any
	// set of concurrent callers observes the value; the rest get
	// ErrNotFound.
	Take(ctx context.Context, key string) (string, error)

	// Delete removes the entry. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Ping verifies connectivity to the backing store.
	Ping(ctx context.Context) error

	// Close releases the backing store handle. Call once on process
	// shutdown.
	Close() error
}

// IsNotFound reports whether err is a cache miss.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
