package memory

import (
	"context"
	"sync"

	"fintrack/internal/core"
)

// Store keeps the table in process memory. Data is lost on restart.
type Store struct {
	mu    sync.Mutex
	items []core.Transaction
	saves int
}

func New() *Store {
	return &Store{}
}

// NewSeeded returns a store preloaded with rows.
func NewSeeded(rows []core.Transaction) *Store {
	return &Store{items: clone(rows)}
}

func (s *Store) Load(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.items), nil
}

func (s *Store) Save(_ context.Context, rows []core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = clone(rows)
	s.saves++
	return nil
}

// Saves returns how many times Save was called.
func (s *Store) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func clone(in []core.Transaction) []core.Transaction {
	if len(in) == 0 {
		return nil
	}
	return append([]core.Transaction(nil), in...)
}
