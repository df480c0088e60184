package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/xrplquantum/dex-engine/internal/dexerr"
	"github.com/xrplquantum/dex-engine/internal/model"
)

// MemoryStore implements Store with an in-memory map. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu    sync.RWMutex
	pairs map[string]*model.Pair
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{pairs: make(map[string]*model.Pair)}
}

func (s *MemoryStore) CreatePair(_ context.Context, p *model.Pair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.pairs[p.ID]; exists {
		return fmt.Errorf("pair %s already exists", p.ID)
	}
	for _, existing := range s.pairs {
		if existing.BaseToken == p.BaseToken && existing.QuoteToken == p.QuoteToken {
			return fmt.Errorf("pair %s/%s already exists", p.BaseToken, p.QuoteToken)
		}
	}

	// Store a copy to avoid external mutation.
	copy := *p
	s.pairs[p.ID] = &copy
	return nil
}

func (s *MemoryStore) GetPair(_ context.Context, id string) (*model.Pair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.pairs[id]
	if !ok {
		return nil, fmt.Errorf("%w: pair %s", dexerr.ErrNotFound, id)
	}
	copy := *p
	return &copy, nil
}

func (s *MemoryStore) ListPairs(_ context.Context) ([]model.Pair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pairs := make([]model.Pair, 0, len(s.pairs))
	for _, p := range s.pairs {
		pairs = append(pairs, *p)
	}
	return pairs, nil
}

func (s *MemoryStore) UpdatePairStatus(_ context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pairs[id]
	if !ok {
		return fmt.Errorf("%w: pair %s", dexerr.ErrNotFound, id)
	}
	p.Status = status
	return nil
}

func (s *MemoryStore) SetPoolAccount(_ context.Context, id, account string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pairs[id]
	if !ok {
		return fmt.Errorf("%w: pair %s", dexerr.ErrNotFound, id)
	}
	p.PoolAccount = account
	return nil
}
