// Package cache provides the byte stores backing the editor's local
// snapshot mirror. A snapshot is written after every committed graph
// mutation so that re-mounts and transient re-renders recover without a
// remote round-trip.
//
// Backends:
//   - MemoryCache: session-scoped, the default for a single editor process
//   - FileCache:   survives process restarts, used by the CLI
//   - RedisCache:  shared across instances in a hosted deployment
//   - NullCache:   disables mirroring entirely
//
// All backends are safe for concurrent use.
package cache

import (
	"context"
	"time"
)

// Cache is a byte store with optional per-entry expiry.
type Cache interface {
	// Get retrieves a value. The second return reports whether the key
	// was present; a miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A ttl of zero means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// SnapshotKey returns the mirror key for a project's graph snapshot.
func SnapshotKey(projectID string) string {
	return "snapshot:" + projectID
}
