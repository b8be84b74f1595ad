package application

import (
	"encoding/hex"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"
)

// principalCache remembers verified identities for a short time so repeated
// requests with the same bearer token skip signature verification. Entries
// are keyed by a digest of the token; the raw token is never kept.
type principalCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]principalCacheEntry
}

type principalCacheEntry struct {
	identity  Identity
	expiresAt time.Time
}

func newPrincipalCache(ttl time.Duration, maxEntries int, now func() time.Time) *principalCache {
	if ttl <= 0 {
		return nil
	}
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	if now == nil {
		now = time.Now
	}
	return &principalCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]principalCacheEntry),
	}
}

func tokenKey(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (c *principalCache) Get(token string) (Identity, bool) {
	if c == nil {
		return Identity{}, false
	}
	key := tokenKey(token)
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return Identity{}, false
	}
	if !c.now().Before(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return Identity{}, false
	}
	return entry.identity, true
}

// Store caches identity until the earlier of the cache TTL and the token's
// own expiry.
func (c *principalCache) Store(token string, identity Identity) {
	if c == nil {
		return
	}
	now := c.now()
	expiry := now.Add(c.ttl)
	if !identity.ExpiresAt.IsZero() && identity.ExpiresAt.Before(expiry) {
		expiry = identity.ExpiresAt
	}
	if !now.Before(expiry) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked(now)
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[tokenKey(token)] = principalCacheEntry{identity: identity, expiresAt: expiry}
}

func (c *principalCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *principalCache) cleanupLocked(now time.Time) {
	for key, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *principalCache) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}
