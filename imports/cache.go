package imports

import (
	"net/http"
	"sync"
	"time"

	"github.com/pquerna/cachecontrol"
)

// Cache keeps remote documents for as long as their HTTP caching headers
// allow. It lets repeated resolutions in one process, such as watch mode,
// skip unchanged remote imports. A nil *Cache caches nothing.
type Cache struct {
	mu      sync.Mutex
	max     int
	entries map[string]cacheEntry
	order   []string
	now     func() time.Time
}

type cacheEntry struct {
	payload *Payload
	expires time.Time
}

// NewCache returns a cache holding at most max documents, or nil when max <= 0.
func NewCache(max int) *Cache {
	if max <= 0 {
		return nil
	}
	return &Cache{max: max, entries: make(map[string]cacheEntry), now: time.Now}
}

// Get returns a fresh cached payload for target.
func (c *Cache) Get(target string) (*Payload, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[target]
	if !ok {
		return nil, false
	}
	if !c.now().Before(entry.expires) {
		return nil, false
	}
	return entry.payload, true
}

// Store keeps payload when the response carries an explicit expiry and no
// directive forbids caching it.
func (c *Cache) Store(target string, req *http.Request, resp *http.Response, payload *Payload) bool {
	if c == nil {
		return false
	}
	reasons, expires, err := cachecontrol.CachableResponse(req, resp, cachecontrol.Options{PrivateCache: true})
	if err != nil || len(reasons) > 0 || expires.IsZero() {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.now().Before(expires) {
		return false
	}
	if _, ok := c.entries[target]; !ok {
		c.order = append(c.order, target)
	}
	c.entries[target] = cacheEntry{payload: payload, expires: expires}
	for len(c.entries) > c.max && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	return true
}

// Len returns the number of cached documents, fresh or not.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
