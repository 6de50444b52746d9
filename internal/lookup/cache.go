package lookup

import (
	"container/list"
	"sync"

	"github.com/couchcryptid/ocean-grid-etl/internal/domain"
	"github.com/couchcryptid/ocean-grid-etl/internal/observability"
)

// Locator resolves a coordinate to its box.
type Locator interface {
	BoxFor(lon, lat float64) (domain.BoxID, error)
}

var _ Locator = (*Index)(nil)

// CachedLocator wraps a Locator with an in-memory LRU cache keyed by exact
// coordinate. Marine reports repeat positions heavily, so most lookups in a
// batch hit the cache.
type CachedLocator struct {
	inner   Locator
	cache   *lruCache[coord, domain.BoxID]
	metrics *observability.Metrics
}

// NewCachedLocator creates a cache decorator around a locator.
func NewCachedLocator(inner Locator, maxEntries int, metrics *observability.Metrics) *CachedLocator {
	return &CachedLocator{
		inner:   inner,
		cache:   newLRUCache[coord, domain.BoxID](max(1, maxEntries)),
		metrics: metrics,
	}
}

func (c *CachedLocator) BoxFor(lon, lat float64) (domain.BoxID, error) {
	key := coord{lon: lon, lat: lat}
	if id, ok := c.cache.get(key); ok {
		c.metrics.LookupCache.WithLabelValues("hit").Inc()
		return id, nil
	}
	c.metrics.LookupCache.WithLabelValues("miss").Inc()
	id, err := c.inner.BoxFor(lon, lat)
	if err != nil {
		return id, err
	}
	// Only successes are cached.
	c.cache.put(key, id)
	return id, nil
}

type coord struct {
	lon, lat float64
}

// lruCache is a thread-safe LRU cache. The front of order is the most
// recently used entry.
type lruCache[K comparable, V any] struct {
	maxEntries int
	mu         sync.Mutex
	order      *list.List
	entries    map[K]*list.Element
}

type lruEntry[K comparable, V any] struct {
	key   K
	value V
}

func newLRUCache[K comparable, V any](maxEntries int) *lruCache[K, V] {
	return &lruCache[K, V]{
		maxEntries: maxEntries,
		order:      list.New(),
		entries:    make(map[K]*list.Element),
	}
}

func (c *lruCache[K, V]) get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*lruEntry[K, V]).value, true
}

func (c *lruCache[K, V]) put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*lruEntry[K, V]).value = value
		c.order.MoveToFront(el)
		return
	}
	c.entries[key] = c.order.PushFront(&lruEntry[K, V]{key: key, value: value})
	if c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*lruEntry[K, V]).key)
	}
}

func (c *lruCache[K, V]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
