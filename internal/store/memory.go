// Package store provides the persistence adapters of the alert engine:
// Redis-backed alert state, Postgres-backed profiles and results, an LRU
// profile cache, and in-memory variants for tests and offline replay.
package store

import (
	"context"
	"sync"

	"github.com/therealdaud/HealthShield/internal/domain"
)

// MemoryStateStore keeps alert state in a map. Used by the offline simulator
// and tests; production deployments use RedisStateStore.
type MemoryStateStore struct {
	mu     sync.RWMutex
	states map[domain.Key]domain.AlertState
}

// NewMemoryStateStore creates an empty in-memory state store.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: make(map[domain.Key]domain.AlertState)}
}

func (s *MemoryStateStore) Get(_ context.Context, key domain.Key) (domain.AlertState, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[key]
	return state, ok, nil
}

func (s *MemoryStateStore) Put(_ context.Context, key domain.Key, state domain.AlertState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[key] = state
	return nil
}

// StaticProfileSource serves profiles from a fixed in-memory set, keyed by
// location.
type StaticProfileSource struct {
	mu       sync.RWMutex
	profiles map[string][]domain.UserProfile
}

// NewStaticProfileSource creates an empty profile source.
func NewStaticProfileSource() *StaticProfileSource {
	return &StaticProfileSource{profiles: make(map[string][]domain.UserProfile)}
}

// Add registers a profile under its location.
func (s *StaticProfileSource) Add(profile domain.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.LocationID] = append(s.profiles[profile.LocationID], profile)
}

func (s *StaticProfileSource) ProfilesForLocation(_ context.Context, locationID string) ([]domain.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profiles[locationID], nil
}
