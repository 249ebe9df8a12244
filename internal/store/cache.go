package store

import (
	"context"
	"sync"
	"time"

	"github.com/therealdaud/HealthShield/internal/domain"
	"github.com/therealdaud/HealthShield/internal/observability"
)

// ProfileSource resolves the user profiles subscribed to a location.
type ProfileSource interface {
	ProfilesForLocation(ctx context.Context, locationID string) ([]domain.UserProfile, error)
}

// CachedProfileSource wraps a ProfileSource with an in-memory LRU cache.
// Profiles are read-mostly: a short TTL bounds how long an edit takes to
// reach the engine while keeping the database off the hot path.
type CachedProfileSource struct {
	inner   ProfileSource
	cache   *lruCache
	ttl     time.Duration
	metrics *observability.Metrics
}

// NewCachedProfileSource creates a cache decorator around a profile source.
// A nil metrics disables instrumentation.
func NewCachedProfileSource(inner ProfileSource, maxEntries int, ttl time.Duration, metrics *observability.Metrics) *CachedProfileSource {
	return &CachedProfileSource{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		ttl:     ttl,
		metrics: metrics,
	}
}

func (c *CachedProfileSource) ProfilesForLocation(ctx context.Context, locationID string) ([]domain.UserProfile, error) {
	if profiles, ok := c.cache.get(locationID, domain.Now()); ok {
		c.count("hit")
		return profiles, nil
	}
	c.count("miss")

	profiles, err := c.inner.ProfilesForLocation(ctx, locationID)
	if err != nil {
		return nil, err
	}
	// Empty sets are cached too: locations with no subscribers are common
	// and hammering the database for them helps nobody.
	c.cache.put(locationID, profiles, domain.Now().Add(c.ttl))
	return profiles, nil
}

func (c *CachedProfileSource) count(result string) {
	if c.metrics != nil {
		c.metrics.ProfileCache.WithLabelValues(result).Inc()
	}
}

// lruCache is a thread-safe LRU cache of profile sets with per-entry expiry.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key       string
	value     []domain.UserProfile
	expiresAt time.Time
	prev      *entry
	next      *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string, now time.Time) ([]domain.UserProfile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if now.After(e.expiresAt) {
		delete(c.entries, key)
		c.remove(e)
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value []domain.UserProfile, expiresAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expiresAt = expiresAt
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value, expiresAt: expiresAt}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
