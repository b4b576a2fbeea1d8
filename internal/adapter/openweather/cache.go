package openweather

import (
	"container/list"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/observability"
)

// CachedGeocoder wraps a Geocoder with an in-memory LRU cache. Coordinates of
// a named place do not change, so only geocoding is cached; weather readings
// are always fetched fresh.
type CachedGeocoder struct {
	inner   domain.Geocoder
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedGeocoder creates a cache decorator around a geocoder.
func NewCachedGeocoder(inner domain.Geocoder, maxEntries int, metrics *observability.Metrics) *CachedGeocoder {
	return &CachedGeocoder{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedGeocoder) Resolve(ctx context.Context, query string, limit int) ([]domain.Location, error) {
	key := fmt.Sprintf("%s|%d", strings.ToLower(strings.TrimSpace(query)), limit)
	if result, ok := c.cache.get(key); ok {
		c.record("hit")
		return result, nil
	}
	c.record("miss")

	result, err := c.inner.Resolve(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	// Only cache non-empty results so "not found" can be retried.
	if len(result) > 0 {
		c.cache.put(key, result)
	}
	return cloneLocations(result), nil
}

func (c *CachedGeocoder) record(result string) {
	if c.metrics != nil {
		c.metrics.GeocodeCache.WithLabelValues(result).Inc()
	}
}

func cloneLocations(in []domain.Location) []domain.Location {
	out := make([]domain.Location, len(in))
	copy(out, in)
	return out
}

// lruCache is a thread-safe LRU cache of candidate lists. The front of order
// is the most recently used entry.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	order      *list.List
	entries    map[string]*list.Element
}

type cacheEntry struct {
	key   string
	value []domain.Location
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		order:      list.New(),
		entries:    make(map[string]*list.Element),
	}
}

// get returns a copy so callers cannot mutate cached candidates.
func (c *lruCache) get(key string) ([]domain.Location, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return cloneLocations(el.Value.(*cacheEntry).value), true
}

func (c *lruCache) put(key string, value []domain.Location) {
	c.mu.Lock()
	defer c.mu.Unlock()

	value = cloneLocations(value)
	if el, ok := c.entries[key]; ok {
		el.Value.(*cacheEntry).value = value
		c.order.MoveToFront(el)
		return
	}

	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, value: value})
	for c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
}

func (c *lruCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
