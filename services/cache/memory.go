package cache

import (
	"errors"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// ErrCacheMiss is returned when a key is not present in the cache.
var ErrCacheMiss = errors.New("cache: miss")

// MemoryService implements CacheService using an in-process cache. It is
// the default backend when no memcache address is configured, and the
// store behind the translation memoizer.
type MemoryService struct {
	cache *gocache.Cache
}

// NewMemoryService creates a new in-memory cache service
func NewMemoryService(defaultTTL, cleanupInterval time.Duration) *MemoryService {
	return &MemoryService{
		cache: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Get retrieves a value from the cache
func (m *MemoryService) Get(key string) ([]byte, error) {
	if val, found := m.cache.Get(key); found {
		return val.([]byte), nil
	}
	return nil, ErrCacheMiss
}

// Set stores a value in the cache with an expiration time
func (m *MemoryService) Set(key string, value []byte, expiration time.Duration) error {
	m.cache.Set(key, value, expiration)
	return nil
}

// Delete removes a value from the cache
func (m *MemoryService) Delete(key string) error {
	m.cache.Delete(key)
	return nil
}
