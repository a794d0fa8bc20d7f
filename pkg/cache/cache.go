// Package cache provides content-addressed caching of rasterized vectors.
//
// # Backends
//
// Three [Cache] implementations are available:
//   - [NullCache]: never stores anything (caching disabled)
//   - [FileCache]: JSON entries under a local directory, for the CLI
//   - [RedisCache]: shared cache for multiple workers or API instances
//
// # Keys
//
// Keys are produced by a [Keyer]. [DefaultKeyer] hashes a drawing's content
// together with every option that affects its raster, so changing the mode,
// stroke width or threshold never returns a stale vector. [ScopedKeyer]
// prefixes keys to share one backend between projects.
//
// # Failure Model
//
// The cache is an optimization. Callers log and ignore cache errors rather
// than failing a conversion.
package cache

import (
	"context"
	"time"
)

// DefaultTTL is how long vector entries live. Vectors depend only on the
// drawing and options, so entries are long-lived.
const DefaultTTL = 30 * 24 * time.Hour

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the stored value and true, or nil and false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}
