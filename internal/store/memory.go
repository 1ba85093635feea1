package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/i474232898/weather-forecast/internal/weather"
)

var (
	// ErrNotFound is returned when no observation matches a query.
	ErrNotFound = errors.New("no temperature observations")
)

// MemoryStore is a concurrency-safe, hour-keyed in-memory temperature store.
// It is also the read index behind FileStore.
type MemoryStore struct {
	mu sync.RWMutex

	// loc is the wall clock observations are keyed on.
	loc  *time.Location
	data map[weather.HourKey]weather.Observation

	latest weather.HourKey
	empty  bool
}

// NewMemoryStore creates an empty store keyed on loc (UTC when nil).
func NewMemoryStore(loc *time.Location) *MemoryStore {
	if loc == nil {
		loc = time.UTC
	}
	return &MemoryStore{
		loc:   loc,
		data:  make(map[weather.HourKey]weather.Observation),
		empty: true,
	}
}

func (s *MemoryStore) key(t time.Time) weather.HourKey {
	return weather.KeyOf(t.In(s.loc))
}

// has reports whether an observation exists for the hour of t.
func (s *MemoryStore) has(t time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[s.key(t)]
	return ok
}

// put inserts obs under k unless the hour is already taken.
func (s *MemoryStore) put(k weather.HourKey, temperature float64, observedAt time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[k]; ok {
		return false
	}
	s.data[k] = weather.Observation{
		Timestamp:   k.Time(s.loc),
		Temperature: temperature,
		ObservedAt:  observedAt,
	}
	if s.empty || s.latest.Before(k) {
		s.latest = k
		s.empty = false
	}
	return true
}

// Record stores temperature for the hour of t. A second record for the same
// hour is dropped.
func (s *MemoryStore) Record(_ context.Context, t time.Time, temperature float64) (bool, error) {
	return s.put(s.key(t), temperature, t), nil
}

// Lookup returns the observation for the hour of t.
func (s *MemoryStore) Lookup(_ context.Context, t time.Time) (float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obs, ok := s.data[s.key(t)]
	if !ok {
		return 0, false, nil
	}
	return obs.Temperature, true, nil
}

// LookupLags returns count entries for the clock hours t-1h ... t-count·h.
func (s *MemoryStore) LookupLags(_ context.Context, t time.Time, count int) ([]*float64, error) {
	k := s.key(t)

	s.mu.RLock()
	defer s.mu.RUnlock()

	lags := make([]*float64, count)
	for i := 1; i <= count; i++ {
		if obs, ok := s.data[k.Sub(i)]; ok {
			v := obs.Temperature
			lags[i-1] = &v
		}
	}
	return lags, nil
}

// Range returns all observations whose hour lies between from and to
// (inclusive), oldest first.
func (s *MemoryStore) Range(_ context.Context, from, to time.Time) ([]weather.Observation, error) {
	lo, hi := s.key(from), s.key(to)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []weather.Observation
	for k, obs := range s.data {
		if k.Before(lo) || hi.Before(k) {
			continue
		}
		result = append(result, obs)
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})
	return result, nil
}

// Latest returns the most recent observation by hour.
func (s *MemoryStore) Latest(_ context.Context) (weather.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.empty {
		return weather.Observation{}, ErrNotFound
	}
	return s.data[s.latest], nil
}

// Len returns the number of stored hours.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Close is a no-op; the memory store holds no resources.
func (s *MemoryStore) Close() error {
	return nil
}
