package store

import (
	"errors"
	"sync"
	"time"

	"github.com/i474232898/weather-history/internal/weather"
)

var (
	// ErrNotFound is returned when no data is available for a given location.
	ErrNotFound = errors.New("no weather data for location")
)

// TableHistory holds the tables loaded for a location, oldest first.
type TableHistory struct {
	Tables []*weather.Table
}

// MemoryStore is a concurrency-safe in-memory implementation of weather.Store.
type MemoryStore struct {
	mu sync.RWMutex

	// key: location key, value: history
	data map[string]*TableHistory

	// max number of tables kept per location
	maxHistory int
}

// NewMemoryStore creates a new MemoryStore.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]*TableHistory),
		maxHistory: maxHistory,
	}
}

// SaveTable appends a table for a location and enforces retention.
func (s *MemoryStore) SaveTable(loc weather.Location, t *weather.Table) {
	key := loc.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.data[key]
	if !ok {
		history = &TableHistory{}
		s.data[key] = history
	}

	history.Tables = append(history.Tables, t)

	if s.maxHistory > 0 && len(history.Tables) > s.maxHistory {
		over := len(history.Tables) - s.maxHistory
		history.Tables = history.Tables[over:]
	}
}

// GetLatest returns the most recently saved table for a location.
func (s *MemoryStore) GetLatest(loc weather.Location) (*weather.Table, error) {
	key := loc.Key()

	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[key]
	if !ok || len(history.Tables) == 0 {
		return nil, ErrNotFound
	}
	return history.Tables[len(history.Tables)-1], nil
}

// GetRange returns the rows of the latest table between from and to (inclusive).
func (s *MemoryStore) GetRange(loc weather.Location, from, to time.Time) ([]weather.Row, error) {
	latest, err := s.GetLatest(loc)
	if err != nil {
		return nil, err
	}

	rows := latest.Rows(from, to)
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows, nil
}
