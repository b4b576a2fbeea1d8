package openweather

import (
	"context"
	"sync"
	"testing"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock for cache tests ---

type countingGeocoder struct {
	mu     sync.Mutex
	calls  int
	result []domain.Location
	err    error
}

func (m *countingGeocoder) Resolve(_ context.Context, _ string, limit int) ([]domain.Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if limit < len(m.result) {
		return cloneLocations(m.result[:limit]), nil
	}
	return cloneLocations(m.result), nil
}

func (m *countingGeocoder) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// --- CachedGeocoder tests ---

func TestCachedGeocoder_CacheHit(t *testing.T) {
	inner := &countingGeocoder{result: []domain.Location{chennai}}
	metrics := observability.NewMetricsForTesting()
	cached := NewCachedGeocoder(inner, 10, metrics)

	r1, err := cached.Resolve(context.Background(), "Chennai", 1)
	require.NoError(t, err)
	assert.Equal(t, "Chennai", r1[0].Name)

	r2, err := cached.Resolve(context.Background(), "  chennai ", 1)
	require.NoError(t, err)
	assert.Equal(t, r1, r2)

	assert.Equal(t, 1, inner.callCount(), "should only call inner once")
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.GeocodeCache.WithLabelValues("hit")), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.GeocodeCache.WithLabelValues("miss")), 1e-9)
}

func TestCachedGeocoder_LimitIsPartOfKey(t *testing.T) {
	inner := &countingGeocoder{result: []domain.Location{chennai, {Name: "Chennai", Country: "US", Latitude: 1, Longitude: 1}}}
	cached := NewCachedGeocoder(inner, 10, nil)

	one, err := cached.Resolve(context.Background(), "Chennai", 1)
	require.NoError(t, err)
	two, err := cached.Resolve(context.Background(), "Chennai", 2)
	require.NoError(t, err)

	assert.Len(t, one, 1)
	assert.Len(t, two, 2)
	assert.Equal(t, 2, inner.callCount())
}

func TestCachedGeocoder_ErrorsNotCached(t *testing.T) {
	inner := &countingGeocoder{err: domain.NotFoundf("geocode.resolve", "no location matches %q", "Atlantis")}
	cached := NewCachedGeocoder(inner, 10, nil)

	_, err := cached.Resolve(context.Background(), "Atlantis", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = cached.Resolve(context.Background(), "Atlantis", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Equal(t, 2, inner.callCount())
}

func TestCachedGeocoder_CallerCannotMutateCache(t *testing.T) {
	inner := &countingGeocoder{result: []domain.Location{chennai}}
	cached := NewCachedGeocoder(inner, 10, nil)

	r1, err := cached.Resolve(context.Background(), "Chennai", 1)
	require.NoError(t, err)
	r1[0].Name = "Madras"

	r2, err := cached.Resolve(context.Background(), "Chennai", 1)
	require.NoError(t, err)
	assert.Equal(t, "Chennai", r2[0].Name)
}

// --- LRU cache unit tests ---

func named(name string) []domain.Location {
	return []domain.Location{{Name: name}}
}

func TestLRUCache_BasicGetPut(t *testing.T) {
	c := newLRUCache(3)

	c.put("a", named("A"))
	c.put("b", named("B"))

	result, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, "A", result[0].Name)

	_, ok = c.get("missing")
	assert.False(t, ok)
	assert.Equal(t, 2, c.size())
}

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", named("A"))
	c.put("b", named("B"))
	c.put("c", named("C")) // evicts "a"

	_, ok := c.get("a")
	assert.False(t, ok, "a should have been evicted")

	result, ok := c.get("b")
	assert.True(t, ok)
	assert.Equal(t, "B", result[0].Name)

	result, ok = c.get("c")
	assert.True(t, ok)
	assert.Equal(t, "C", result[0].Name)
	assert.Equal(t, 2, c.size())
}

func TestLRUCache_AccessPromotesEntry(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", named("A"))
	c.put("b", named("B"))

	c.get("a")

	// "b" is now least recently used.
	c.put("c", named("C"))

	_, ok := c.get("a")
	assert.True(t, ok, "a was accessed recently, should not be evicted")

	_, ok = c.get("b")
	assert.False(t, ok, "b should have been evicted")
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", named("A1"))
	c.put("a", named("A2"))

	result, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, "A2", result[0].Name)
	assert.Equal(t, 1, c.size())
}
