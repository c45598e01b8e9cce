package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// CacheService represents a generic cache service
type CacheService interface {
	// Get retrieves a value from the cache
	Get(key string) ([]byte, error)

	// Set stores a value in the cache with an expiration time
	Set(key string, value []byte, expiration time.Duration) error

	// Delete removes a value from the cache
	Delete(key string) error
}

// Key builds a namespaced cache key from arbitrary input. Long inputs
// (translation source strings) are hashed so memcache key limits hold.
func Key(namespace, input string) string {
	hash := sha256.Sum256([]byte(input))
	return namespace + ":" + hex.EncodeToString(hash[:])
}
