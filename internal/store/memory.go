package store

import (
	"errors"
	"sync"
	"time"

	"auroracast/internal/predict"
	"auroracast/internal/weather"
)

// ErrNotFound is returned when no predictions are recorded for a location.
var ErrNotFound = errors.New("no predictions for location")

// Record is one completed prediction kept for the history endpoint.
type Record struct {
	Location  weather.Location `json:"location"`
	Timestamp time.Time        `json:"timestamp"` // always UTC
	Result    predict.Result   `json:"result"`
}

// history holds a time-ordered list of records for one location key.
type history struct {
	records []Record
}

// MemoryStore is a concurrency-safe in-memory prediction history with
// retention by count and by age.
type MemoryStore struct {
	mu sync.RWMutex

	data map[string]*history

	maxHistory int           // max records per location (<= 0 = unlimited)
	maxAge     time.Duration // max record age (<= 0 = unlimited)
}

// NewMemoryStore creates a MemoryStore with optional retention limits.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]*history),
		maxHistory: maxHistory,
		maxAge:     maxAge,
	}
}

// Save appends a record for its location and enforces retention.
func (s *MemoryStore) Save(rec Record) {
	rec.Timestamp = rec.Timestamp.UTC()
	key := rec.Location.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.data[key]
	if !ok {
		h = &history{}
		s.data[key] = h
	}

	h.records = append(h.records, rec)

	if s.maxHistory > 0 && len(h.records) > s.maxHistory {
		over := len(h.records) - s.maxHistory
		h.records = h.records[over:]
	}

	if s.maxAge > 0 {
		cutoff := time.Now().UTC().Add(-s.maxAge)
		i := 0
		for ; i < len(h.records); i++ {
			if !h.records[i].Timestamp.Before(cutoff) {
				break
			}
		}
		if i > 0 {
			h.records = h.records[i:]
		}
	}
}

// Latest returns the most recent record for a location.
func (s *MemoryStore) Latest(loc weather.Location) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.data[loc.Key()]
	if !ok || len(h.records) == 0 {
		return Record{}, ErrNotFound
	}
	return h.records[len(h.records)-1], nil
}

// Range returns all records for a location between from and to, inclusive.
func (s *MemoryStore) Range(loc weather.Location, from, to time.Time) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.data[loc.Key()]
	if !ok || len(h.records) == 0 {
		return nil, ErrNotFound
	}

	var result []Record
	for _, rec := range h.records {
		if !rec.Timestamp.Before(from) && !rec.Timestamp.After(to) {
			result = append(result, rec)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}
