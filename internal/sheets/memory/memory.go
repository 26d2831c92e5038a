package memory

import (
	"context"
	"sync"

	ports "ledger/internal/sheets"
)

// Store is an in-process mirror for development and tests.
type Store struct {
	mu   sync.Mutex
	tabs map[string][]ports.Row
}

var _ ports.Mirror = (*Store)(nil)

func New() *Store {
	return &Store{tabs: map[string][]ports.Row{}}
}

// Upsert replaces the row with the same key in place or appends it.
func (s *Store) Upsert(_ context.Context, tab string, row ports.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row.Values = append([]any(nil), row.Values...)
	rows := s.tabs[tab]
	for i := range rows {
		if rows[i].Key == row.Key {
			rows[i] = row
			return nil
		}
	}
	s.tabs[tab] = append(rows, row)
	return nil
}

func (s *Store) Delete(_ context.Context, tab, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.tabs[tab]
	for i := range rows {
		if rows[i].Key == key {
			s.tabs[tab] = append(rows[:i:i], rows[i+1:]...)
			return nil
		}
	}
	return nil
}

// Rows returns a copy of the rows of tab in insertion order.
func (s *Store) Rows(tab string) []ports.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ports.Row(nil), s.tabs[tab]...)
}

// Get returns the row with key, if mirrored.
func (s *Store) Get(tab, key string) (ports.Row, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.tabs[tab] {
		if r.Key == key {
			return r, true
		}
	}
	return ports.Row{}, false
}
