package cache

import (
	"sync"
	"time"
)

type cacheItem[V any] struct {
	value     V
	expiresAt time.Time // zero means no expiration
}

func (item *cacheItem[V]) expired(now time.Time) bool {
	return !item.expiresAt.IsZero() && now.After(item.expiresAt)
}

// Cache is a thread-safe, generic cache with TTL support. Values leaving the
// cache, whether deleted, replaced, expired or closed over, are handed to the
// eviction callback if one is set.
type Cache[K comparable, V any] struct {
	mu         sync.Mutex
	items      map[K]*cacheItem[V]
	defaultTTL time.Duration
	onEvict    func(K, V)

	interval time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

// Option is a functional option type for Cache configuration.
type Option[K comparable, V any] func(*Cache[K, V])

// WithDefaultTTL sets the TTL used by Set and GetOrCreate.
func WithDefaultTTL[K comparable, V any](ttl time.Duration) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.defaultTTL = ttl
	}
}

// WithJanitorInterval starts a goroutine that drops expired items every
// interval. Without it expired items are only dropped lazily.
func WithJanitorInterval[K comparable, V any](interval time.Duration) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.interval = interval
	}
}

// WithEvictFunc registers fn to be called for every value leaving the cache.
// It runs without the cache lock held.
func WithEvictFunc[K comparable, V any](fn func(K, V)) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.onEvict = fn
	}
}

// NewCache creates a new Cache instance with optional configurations.
func NewCache[K comparable, V any](opts ...Option[K, V]) *Cache[K, V] {
	c := &Cache[K, V]{
		items: make(map[K]*cacheItem[V]),
		stop:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.interval > 0 {
		go c.janitor()
	}
	return c
}

func (c *Cache[K, V]) janitor() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.DeleteExpired()
		case <-c.stop:
			return
		}
	}
}

type evicted[K comparable, V any] struct {
	key   K
	value V
}

func (c *Cache[K, V]) notify(list []evicted[K, V]) {
	if c.onEvict == nil {
		return
	}
	for _, e := range list {
		c.onEvict(e.key, e.value)
	}
}

// Set adds or updates an item with the default TTL.
func (c *Cache[K, V]) Set(k K, v V) {
	c.SetWithTTL(k, v, c.defaultTTL)
}

// SetWithTTL adds or updates an item. A zero ttl never expires, a negative
// ttl removes the key.
func (c *Cache[K, V]) SetWithTTL(k K, v V, ttl time.Duration) {
	if ttl < 0 {
		c.Delete(k)
		return
	}
	var gone []evicted[K, V]
	c.mu.Lock()
	if old, ok := c.items[k]; ok {
		gone = append(gone, evicted[K, V]{k, old.value})
	}
	c.items[k] = newItem(v, ttl)
	c.mu.Unlock()
	c.notify(gone)
}

func newItem[V any](v V, ttl time.Duration) *cacheItem[V] {
	item := &cacheItem[V]{value: v}
	if ttl > 0 {
		item.expiresAt = time.Now().Add(ttl)
	}
	return item
}

// Get returns the value for k if present and not expired.
func (c *Cache[K, V]) Get(k K) (V, bool) {
	var zero V
	var gone []evicted[K, V]
	c.mu.Lock()
	item, ok := c.items[k]
	if ok && item.expired(time.Now()) {
		delete(c.items, k)
		gone = append(gone, evicted[K, V]{k, item.value})
		ok = false
	}
	c.mu.Unlock()
	c.notify(gone)
	if !ok {
		return zero, false
	}
	return item.value, true
}

// GetOrCreate returns the cached value for k, or calls create and stores its
// result. create runs under the cache lock, so concurrent callers for the
// same key share one value. A create error is returned and nothing is stored.
func (c *Cache[K, V]) GetOrCreate(k K, create func() (V, error)) (V, error) {
	var gone []evicted[K, V]
	defer func() { c.notify(gone) }()

	c.mu.Lock()
	defer c.mu.Unlock()
	if item, ok := c.items[k]; ok {
		if !item.expired(time.Now()) {
			return item.value, nil
		}
		delete(c.items, k)
		gone = append(gone, evicted[K, V]{k, item.value})
	}
	v, err := create()
	if err != nil {
		var zero V
		return zero, err
	}
	c.items[k] = newItem(v, c.defaultTTL)
	return v, nil
}

// Delete removes an item from the cache.
func (c *Cache[K, V]) Delete(k K) {
	var gone []evicted[K, V]
	c.mu.Lock()
	if item, ok := c.items[k]; ok {
		delete(c.items, k)
		gone = append(gone, evicted[K, V]{k, item.value})
	}
	c.mu.Unlock()
	c.notify(gone)
}

// DeleteExpired drops every expired item.
func (c *Cache[K, V]) DeleteExpired() {
	var gone []evicted[K, V]
	now := time.Now()
	c.mu.Lock()
	for k, item := range c.items {
		if item.expired(now) {
			delete(c.items, k)
			gone = append(gone, evicted[K, V]{k, item.value})
		}
	}
	c.mu.Unlock()
	c.notify(gone)
}

// Range calls f for each unexpired item until f returns false. Order is not
// guaranteed and f must not call back into the cache.
func (c *Cache[K, V]) Range(f func(key K, value V) bool) {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, item := range c.items {
		if item.expired(now) {
			continue
		}
		if !f(k, item.value) {
			return
		}
	}
}

// Clean removes all items from the cache.
func (c *Cache[K, V]) Clean() {
	c.mu.Lock()
	gone := make([]evicted[K, V], 0, len(c.items))
	for k, item := range c.items {
		gone = append(gone, evicted[K, V]{k, item.value})
	}
	clear(c.items)
	c.mu.Unlock()
	c.notify(gone)
}

// Len returns the number of stored items, expired ones included.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Close stops the janitor and evicts everything left.
func (c *Cache[K, V]) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
	c.Clean()
}
