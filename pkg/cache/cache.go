package cache

import (
	"sync"
	"time"
)

// Entry is a security token together with its expiry.
type Entry struct {
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
	lastUsed  time.Time
}

func (e *Entry) expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

type TokenCache struct {
	MaxEntries int
	entries    map[string]*Entry
	lock       sync.Mutex
	now        func() time.Time
}

// New returns a TokenCache that holds up to maxEntries tokens. The TokenCache uses a
// least-recently-used (LRU) eviction strategy, where a token is "used" when it authorizes a
// command.
//
// Set maxEntries to zero for an unbounded cache.
func New(maxEntries int) *TokenCache {
	return &TokenCache{
		MaxEntries: maxEntries,
		entries:    make(map[string]*Entry),
		now:        time.Now,
	}
}

func key(vin, operation string) string {
	return vin + "/" + operation
}

// Update stores token for the vin and operation. A zero ttl means the token does not expire.
func (c *TokenCache) Update(vin, operation, token string, ttl time.Duration) {
	c.lock.Lock()
	defer c.lock.Unlock()

	now := c.now()
	entry := &Entry{Token: token, CreatedAt: now, lastUsed: now}
	if ttl > 0 {
		entry.ExpiresAt = now.Add(ttl)
	}
	newKey := key(vin, operation)
	c.entries[newKey] = entry
	if c.MaxEntries > 0 && len(c.entries) > c.MaxEntries {
		// The new entry is never evicted, even if other entries were used at the same instant.
		oldestKey := ""
		var oldest time.Time
		for k, e := range c.entries {
			if k == newKey {
				continue
			}
			if e.expired(now) {
				oldestKey = k
				break
			}
			if oldestKey == "" || e.lastUsed.Before(oldest) {
				oldestKey = k
				oldest = e.lastUsed
			}
		}
		delete(c.entries, oldestKey)
	}
}

// Get returns a valid token for the vin and operation. Expired tokens are removed.
func (c *TokenCache) Get(vin, operation string) (string, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	k := key(vin, operation)
	entry, ok := c.entries[k]
	if !ok {
		return "", false
	}
	now := c.now()
	if entry.expired(now) {
		delete(c.entries, k)
		return "", false
	}
	entry.lastUsed = now
	return entry.Token, true
}

// Invalidate removes the token for the vin and operation, e.g. after the backend rejected it.
func (c *TokenCache) Invalidate(vin, operation string) {
	c.lock.Lock()
	defer c.lock.Unlock()
	delete(c.entries, key(vin, operation))
}

// Len returns the number of cached tokens, including expired ones that have not been evicted yet.
func (c *TokenCache) Len() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return len(c.entries)
}
