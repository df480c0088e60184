// Package store defines the metadata persistence interface for pair
// definitions. Implementations include PostgreSQL (source of truth),
// Redis (read-through cache), and in-memory (for testing).
//
// Only pair metadata lives here. Ledger state — offers, pool reserves,
// transaction history — is always read fresh from the ledger and never
// persisted.
package store

import (
	"context"

	"github.com/xrplquantum/dex-engine/internal/model"
)

// Store is the pair metadata interface.
type Store interface {
	// CreatePair persists a new pair definition.
	CreatePair(ctx context.Context, pair *model.Pair) error

	// GetPair retrieves a pair by its ID. Returns an error wrapping
	// dexerr.ErrNotFound when absent.
	GetPair(ctx context.Context, id string) (*model.Pair, error)

	// ListPairs returns all pairs.
	ListPairs(ctx context.Context) ([]model.Pair, error)

	// UpdatePairStatus flips a pair's lifecycle status.
	UpdatePairStatus(ctx context.Context, id, status string) error

	// SetPoolAccount records the pair's AMM pool account once known.
	SetPoolAccount(ctx context.Context, id, account string) error
}
