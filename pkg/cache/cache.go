// Package cache provides the optional caching layer for the conversion
// engine: derived path queries and rendered graph artwork can be cached
// across runs.
//
// The [Cache] interface has pluggable backends:
//   - NullCache: caching disabled (the default for library use)
//   - MemoryCache: process-local, for servers and tests
//   - FileCache: on-disk, for CLI usage
//   - RedisCache: shared, for multi-instance deployments
//   - MongoCache: shared, TTL-expired by the server
//
// Cached paths are an optimization only - path queries remain derived data
// and are always recomputable from the graph. Keys embed the graph version
// so any mutation invalidates previously cached queries.
package cache

import (
	"context"
	"time"
)

// TTLs for the different cached value classes.
const (
	// TTLPaths is the lifetime of cached path-query results. Keys embed the
	// graph version, so this only bounds storage growth.
	TTLPaths = 24 * time.Hour

	// TTLArtifact is the lifetime of rendered graph artwork (DOT/SVG).
	TTLArtifact = 7 * 24 * time.Hour
)

// Cache is a byte-oriented key-value store with per-entry TTL.
type Cache interface {
	// Get retrieves a value. The second return reports whether the key was
	// found and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A non-positive ttl stores without expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// PathKeyOpts are the query parameters embedded in a path-query cache key.
type PathKeyOpts struct {
	Source string
	Target string
	N      int
}

// RenderKeyOpts are the options embedded in a rendered-artwork cache key.
type RenderKeyOpts struct {
	Format  string // "dot" or "svg"
	Weights bool
}

// Keyer generates cache keys for the engine's cached value classes.
type Keyer interface {
	// PathKey generates a key for a top-N path query against a specific
	// graph version.
	PathKey(graphVersion uint64, opts PathKeyOpts) string

	// RenderKey generates a key for rendered graph artwork.
	RenderKey(graphVersion uint64, opts RenderKeyOpts) string
}

// DefaultKeyer generates hashed, collision-resistant keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// PathKey generates a key for a path query.
func (k *DefaultKeyer) PathKey(graphVersion uint64, opts PathKeyOpts) string {
	return hashKey("paths", graphVersion, opts)
}

// RenderKey generates a key for rendered artwork.
func (k *DefaultKeyer) RenderKey(graphVersion uint64, opts RenderKeyOpts) string {
	return hashKey("render", graphVersion, opts)
}
