package memory

import (
	"context"
	"slices"
	"sync"

	"tradedash/internal/core"
	"tradedash/internal/source"
)

var _ source.TransactionSource = (*Store)(nil)

// Store is an in-memory dataset, handy for tests and piped input.
type Store struct {
	mu    sync.Mutex
	items []core.Transaction
	err   error
}

func New(items []core.Transaction) *Store {
	return &Store{items: slices.Clone(items)}
}

// Replace swaps the stored dataset.
func (s *Store) Replace(items []core.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = slices.Clone(items)
}

// FailWith makes subsequent loads return err; nil clears it.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Load returns a copy of the stored transactions.
func (s *Store) Load(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return slices.Clone(s.items), nil
}

func (s *Store) Name() string { return "memory" }
