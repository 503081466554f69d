// Package store keeps the history of successful fetches so it can be served
// back over the API. The state holder never reads from it.
package store

import (
	"errors"
	"sync"
	"time"

	"github.com/i474232898/current-weather/internal/common"
	"github.com/i474232898/current-weather/internal/weather"
)

// ErrNotFound means no fetch for the city falls in the requested window.
var ErrNotFound = errors.New("no weather data for city")

// MemoryStore records fetch results per city, oldest first.
type MemoryStore struct {
	mu      sync.RWMutex
	byCity  map[string][]weather.FetchedRecord // keyed by common.CityKey
	limit   int                                // records kept per city, <= 0 keeps all
	horizon time.Duration                      // records older than this are pruned, 0 keeps all

	now func() time.Time
}

// NewMemoryStore returns an empty store. A non-positive limit or a zero
// horizon disables that kind of pruning.
func NewMemoryStore(limit int, horizon time.Duration) *MemoryStore {
	return &MemoryStore{
		byCity:  make(map[string][]weather.FetchedRecord),
		limit:   limit,
		horizon: horizon,
		now:     time.Now,
	}
}

// Save implements weather.Recorder.
func (s *MemoryStore) Save(city string, rec weather.FetchedRecord) {
	key := common.CityKey(city)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.byCity[key] = s.prune(append(s.byCity[key], rec))
}

// prune drops records past the count limit, then records fetched before the
// horizon. The last fetch of a city always survives.
func (s *MemoryStore) prune(recs []weather.FetchedRecord) []weather.FetchedRecord {
	if s.limit > 0 && len(recs) > s.limit {
		recs = recs[len(recs)-s.limit:]
	}
	if s.horizon <= 0 {
		return recs
	}

	cutoff := s.now().Add(-s.horizon)
	drop := 0
	for drop < len(recs)-1 && recs[drop].FetchedAt.Before(cutoff) {
		drop++
	}
	return recs[drop:]
}

// GetLatest returns the last fetch saved for city.
func (s *MemoryStore) GetLatest(city string) (weather.FetchedRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := s.byCity[common.CityKey(city)]
	if len(recs) == 0 {
		return weather.FetchedRecord{}, ErrNotFound
	}
	return recs[len(recs)-1], nil
}

// GetRange returns the fetches for city with from <= FetchedAt <= to.
func (s *MemoryStore) GetRange(city string, from, to time.Time) ([]weather.FetchedRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []weather.FetchedRecord
	for _, rec := range s.byCity[common.CityKey(city)] {
		if rec.FetchedAt.Before(from) || rec.FetchedAt.After(to) {
			continue
		}
		out = append(out, rec)
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}
