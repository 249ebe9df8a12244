package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therealdaud/HealthShield/internal/domain"
)

// --- mock for cache tests ---

type countingProfileSource struct {
	calls    int
	profiles []domain.UserProfile
	err      error
}

func (m *countingProfileSource) ProfilesForLocation(_ context.Context, _ string) ([]domain.UserProfile, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.profiles, nil
}

// --- CachedProfileSource tests ---

func TestCachedProfileSource_CacheHit(t *testing.T) {
	inner := &countingProfileSource{
		profiles: []domain.UserProfile{{UserID: "user-1", LocationID: "tampa-usf-valet"}},
	}
	cached := NewCachedProfileSource(inner, 10, 5*time.Minute, nil)

	first, err := cached.ProfilesForLocation(context.Background(), "tampa-usf-valet")
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := cached.ProfilesForLocation(context.Background(), "tampa-usf-valet")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls, "should only call inner once")
}

func TestCachedProfileSource_EmptySetCached(t *testing.T) {
	inner := &countingProfileSource{}
	cached := NewCachedProfileSource(inner, 10, 5*time.Minute, nil)

	_, err := cached.ProfilesForLocation(context.Background(), "nowhere")
	require.NoError(t, err)
	_, err = cached.ProfilesForLocation(context.Background(), "nowhere")
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls)
}

func TestCachedProfileSource_ErrorNotCached(t *testing.T) {
	inner := &countingProfileSource{err: errors.New("pool exhausted")}
	cached := NewCachedProfileSource(inner, 10, 5*time.Minute, nil)

	_, err := cached.ProfilesForLocation(context.Background(), "tampa-usf-valet")
	require.Error(t, err)
	_, err = cached.ProfilesForLocation(context.Background(), "tampa-usf-valet")
	require.Error(t, err)

	assert.Equal(t, 2, inner.calls, "failures must be retried, not cached")
}

func TestCachedProfileSource_TTLExpiry(t *testing.T) {
	fakeClock := clockwork.NewFakeClockAt(time.Date(2026, time.July, 14, 15, 0, 0, 0, time.UTC))
	domain.SetClock(fakeClock)
	t.Cleanup(func() {
		domain.SetClock(nil)
	})

	inner := &countingProfileSource{
		profiles: []domain.UserProfile{{UserID: "user-1", LocationID: "tampa-usf-valet"}},
	}
	cached := NewCachedProfileSource(inner, 10, 5*time.Minute, nil)

	_, err := cached.ProfilesForLocation(context.Background(), "tampa-usf-valet")
	require.NoError(t, err)

	fakeClock.Advance(4 * time.Minute)
	_, err = cached.ProfilesForLocation(context.Background(), "tampa-usf-valet")
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls, "entry still fresh")

	fakeClock.Advance(2 * time.Minute)
	_, err = cached.ProfilesForLocation(context.Background(), "tampa-usf-valet")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls, "entry expired after TTL")
}

// --- LRU cache unit tests ---

func profileSet(userID string) []domain.UserProfile {
	return []domain.UserProfile{{UserID: userID}}
}

func TestLRUCache_BasicGetPut(t *testing.T) {
	now := time.Date(2026, time.July, 14, 15, 0, 0, 0, time.UTC)
	c := newLRUCache(3)

	c.put("a", profileSet("user-a"), now.Add(time.Hour))
	c.put("b", profileSet("user-b"), now.Add(time.Hour))

	value, ok := c.get("a", now)
	assert.True(t, ok)
	assert.Equal(t, "user-a", value[0].UserID)

	_, ok = c.get("missing", now)
	assert.False(t, ok)
}

func TestLRUCache_Eviction(t *testing.T) {
	now := time.Date(2026, time.July, 14, 15, 0, 0, 0, time.UTC)
	c := newLRUCache(2)

	c.put("a", profileSet("user-a"), now.Add(time.Hour))
	c.put("b", profileSet("user-b"), now.Add(time.Hour))
	c.put("c", profileSet("user-c"), now.Add(time.Hour)) // evicts "a"

	_, ok := c.get("a", now)
	assert.False(t, ok, "a should have been evicted")

	_, ok = c.get("b", now)
	assert.True(t, ok)
	_, ok = c.get("c", now)
	assert.True(t, ok)
}

func TestLRUCache_AccessPromotesEntry(t *testing.T) {
	now := time.Date(2026, time.July, 14, 15, 0, 0, 0, time.UTC)
	c := newLRUCache(2)

	c.put("a", profileSet("user-a"), now.Add(time.Hour))
	c.put("b", profileSet("user-b"), now.Add(time.Hour))

	c.get("a", now)

	c.put("c", profileSet("user-c"), now.Add(time.Hour))

	_, ok := c.get("a", now)
	assert.True(t, ok, "a was accessed recently, should not be evicted")

	_, ok = c.get("b", now)
	assert.False(t, ok, "b should have been evicted")
}

func TestLRUCache_ExpiredEntryRemoved(t *testing.T) {
	now := time.Date(2026, time.July, 14, 15, 0, 0, 0, time.UTC)
	c := newLRUCache(2)

	c.put("a", profileSet("user-a"), now.Add(time.Minute))

	_, ok := c.get("a", now.Add(2*time.Minute))
	assert.False(t, ok)

	// The slot is free again.
	c.put("b", profileSet("user-b"), now.Add(time.Hour))
	c.put("c", profileSet("user-c"), now.Add(time.Hour))
	_, ok = c.get("b", now)
	assert.True(t, ok)
}
