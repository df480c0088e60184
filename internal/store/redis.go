package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xrplquantum/dex-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache. Writes go to the primary store and refresh or invalidate the
// cache; reads check Redis first then fall back to the primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{primary: primary, rdb: rdb, ttl: ttl}
}

func (s *CachedStore) CreatePair(ctx context.Context, p *model.Pair) error {
	if err := s.primary.CreatePair(ctx, p); err != nil {
		return err
	}
	s.cachePair(ctx, p)
	return nil
}

func (s *CachedStore) GetPair(ctx context.Context, id string) (*model.Pair, error) {
	data, err := s.rdb.Get(ctx, pairKey(id)).Bytes()
	if err == nil {
		var p model.Pair
		if json.Unmarshal(data, &p) == nil {
			return &p, nil
		}
	}

	// Cache miss: read from primary.
	p, err := s.primary.GetPair(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cachePair(ctx, p)
	return p, nil
}

// ListPairs is a passthrough; the list changes rarely and is cheap.
func (s *CachedStore) ListPairs(ctx context.Context) ([]model.Pair, error) {
	return s.primary.ListPairs(ctx)
}

func (s *CachedStore) UpdatePairStatus(ctx context.Context, id, status string) error {
	if err := s.primary.UpdatePairStatus(ctx, id, status); err != nil {
		return err
	}
	// Invalidate; next read re-populates.
	s.rdb.Del(ctx, pairKey(id))
	return nil
}

func (s *CachedStore) SetPoolAccount(ctx context.Context, id, account string) error {
	if err := s.primary.SetPoolAccount(ctx, id, account); err != nil {
		return err
	}
	s.rdb.Del(ctx, pairKey(id))
	return nil
}

func (s *CachedStore) cachePair(ctx context.Context, p *model.Pair) {
	if data, err := json.Marshal(p); err == nil {
		s.rdb.Set(ctx, pairKey(p.ID), data, s.ttl)
	}
}

func pairKey(id string) string { return fmt.Sprintf("pair:%s", id) }
