// Package dedup provides the short-lived request deduplication the
// orchestrator consults: a content-hash keyed cache with a one-minute TTL,
// plus singleflight collapsing so concurrent identical requests share one
// pipeline run.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// Window is how long an identical request replays its previous response.
const Window = time.Minute

const defaultSize = 1024

// Hash derives the content key: sha256(userId || convId || content).
func Hash(userID, conversationID int64, content string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d|%d|%s", userID, conversationID, content)))
	return hex.EncodeToString(sum[:])
}

// Cache stores recent responses by content hash. V is the response type;
// values expire by TTL and by LRU pressure.
type Cache[V any] struct {
	lru   *expirable.LRU[string, V]
	group singleflight.Group
}

func New[V any](ttl time.Duration) *Cache[V] {
	if ttl <= 0 {
		ttl = Window
	}
	return &Cache[V]{
		lru: expirable.NewLRU[string, V](defaultSize, nil, ttl),
	}
}

// Get returns a cached response for the key.
func (c *Cache[V]) Get(key string) (V, bool) {
	return c.lru.Get(key)
}

// Do runs fn once per key across concurrent callers, caches the result,
// and returns it. A cached value short-circuits entirely.
func (c *Cache[V]) Do(key string, fn func() (V, error)) (V, error) {
	if v, ok := c.lru.Get(key); ok {
		return v, nil
	}
	out, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.lru.Get(key); ok {
			return v, nil
		}
		v, err := fn()
		if err != nil {
			return v, err
		}
		c.lru.Add(key, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return out.(V), nil
}
