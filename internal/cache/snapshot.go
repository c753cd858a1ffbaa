package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Snapshot caches one loaded value in process for at most TTL. Concurrent
// misses share a single load. A failed load leaves the previous value in place.
// A load that overlaps Invalidate is returned to its callers but not kept.
type Snapshot[T any] struct {
	ttl   time.Duration
	now   func() time.Time
	group singleflight.Group

	mu          sync.RWMutex
	value       T
	refreshedAt time.Time
	valid       bool
	gen         uint64
}

// NewSnapshot returns an empty snapshot cache with the given TTL.
func NewSnapshot[T any](ttl time.Duration) *Snapshot[T] {
	return &Snapshot[T]{ttl: ttl, now: time.Now}
}

// Get returns the cached value if it is younger than the TTL, otherwise it calls load.
func (s *Snapshot[T]) Get(ctx context.Context, load func(context.Context) (T, error)) (T, error) {
	s.mu.RLock()
	if s.valid && s.now().Sub(s.refreshedAt) < s.ttl {
		v := s.value
		s.mu.RUnlock()
		return v, nil
	}
	gen := s.gen
	s.mu.RUnlock()

	v, err, _ := s.group.Do("load:"+strconv.FormatUint(gen, 10), func() (interface{}, error) {
		loaded, err := load(ctx)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		if s.gen == gen {
			s.value = loaded
			s.refreshedAt = s.now()
			s.valid = true
		}
		s.mu.Unlock()
		return loaded, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Invalidate forces the next Get to reload and discards any load already in flight.
func (s *Snapshot[T]) Invalidate() {
	s.mu.Lock()
	s.valid = false
	s.gen++
	s.mu.Unlock()
}

// RefreshedAt reports when the value was last loaded; zero if never.
func (s *Snapshot[T]) RefreshedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshedAt
}
