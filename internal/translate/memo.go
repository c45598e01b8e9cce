package translate

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Nestour97/dsp-scraper/services/cache"
)

// Memo wraps a Translator with process-wide memoization. Source strings
// recur heavily across countries sharing a language, and the underlying
// service is rate-limited, so identical inputs are computed at most once
// and kept for the life of the cache.
type Memo struct {
	next  Translator
	cache cache.CacheService
	ttl   time.Duration

	mu       sync.Mutex
	inflight map[string]chan struct{}
}

// NewMemo creates a memoizing translator over the given cache backend.
// A zero ttl defers to the backend's default expiration policy: no
// expiry on memcached, the cache's configured default TTL in memory.
func NewMemo(next Translator, c cache.CacheService, ttl time.Duration) *Memo {
	return &Memo{
		next:     next,
		cache:    c,
		ttl:      ttl,
		inflight: make(map[string]chan struct{}),
	}
}

// Translate implements Translator with at-most-once computation per key.
// Concurrent callers for the same input wait for the first computation
// instead of issuing duplicate service calls.
func (m *Memo) Translate(ctx context.Context, text string) (string, error) {
	if text == "" {
		return "", nil
	}
	key := cache.Key("translate", text)

	for {
		if val, err := m.cache.Get(key); err == nil {
			return string(val), nil
		}

		m.mu.Lock()
		done, running := m.inflight[key]
		if !running {
			done = make(chan struct{})
			m.inflight[key] = done
			m.mu.Unlock()
			break
		}
		m.mu.Unlock()

		select {
		case <-done:
			// First caller finished; re-check the cache.
		case <-ctx.Done():
			return strings.ToLower(text), ctx.Err()
		}
	}

	defer func() {
		m.mu.Lock()
		close(m.inflight[key])
		delete(m.inflight, key)
		m.mu.Unlock()
	}()

	out, err := m.next.Translate(ctx, text)
	if err != nil {
		// Best effort: fall back to the lowercased original and do not
		// poison the cache with the failure.
		return strings.ToLower(text), nil
	}

	_ = m.cache.Set(key, []byte(out), m.ttl)
	return out, nil
}
