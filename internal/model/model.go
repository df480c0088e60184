// Package model defines the core domain types shared across the DEX engine.
// All monetary values use shopspring/decimal — never float64 for money.
package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xrplquantum/dex-engine/internal/asset"
)

// Side classifies a resting order relative to the pair's base asset.
type Side string

const (
	Bid Side = "bid"
	Ask Side = "ask"
)

// Pair is a tradeable base/quote asset pair. The metadata store is the
// source of truth for pair definitions; ledger state (offers, pool
// reserves) is always read fresh and never persisted here.
type Pair struct {
	ID          string    `json:"id" db:"id"`
	BaseToken   string    `json:"base_token" db:"base_token"`
	QuoteToken  string    `json:"quote_token" db:"quote_token"`
	BaseIssuer  string    `json:"base_issuer,omitempty" db:"base_issuer"`
	PoolAccount string    `json:"pool_account,omitempty" db:"pool_account"`
	Status      string    `json:"status" db:"status"` // "pending", "approved"
	CreatedBy   string    `json:"created_by,omitempty" db:"created_by"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Label returns the pair's display label, e.g. "XQNT/XRP".
func (p *Pair) Label() string {
	return p.BaseToken + "/" + p.QuoteToken
}

// BaseAsset returns the pair's base asset. Non-native tokens are issued
// by the pair's registered issuer.
func (p *Pair) BaseAsset() asset.Asset {
	if p.BaseToken == asset.NativeCurrency {
		return asset.Native()
	}
	return asset.Issued(p.BaseToken, p.BaseIssuer)
}

// QuoteAsset returns the pair's quote asset. A non-native quote shares
// the pair's registered issuer.
func (p *Pair) QuoteAsset() asset.Asset {
	if p.QuoteToken == asset.NativeCurrency {
		return asset.Native()
	}
	return asset.Issued(p.QuoteToken, p.BaseIssuer)
}

// BookEntry is one normalized resting order. Price and Size are exact
// decimals; display rounding happens at the API boundary only.
type BookEntry struct {
	ID           string          `json:"id"`
	PairID       string          `json:"pair_id"`
	Side         Side            `json:"side"`
	Price        decimal.Decimal `json:"price"`
	Size         decimal.Decimal `json:"size"`
	OwnerAddress string          `json:"owner_address"`
}

// OrderBookSnapshot is a merged two-sided book view over ledger state.
// Bids are sorted descending by price, asks ascending. MidPriceAvailable
// is false when neither side has entries.
type OrderBookSnapshot struct {
	Bids              []BookEntry
	Asks              []BookEntry
	MidPrice          decimal.Decimal
	MidPriceAvailable bool
}

// BestBid returns the highest-priced bid, if any.
func (s *OrderBookSnapshot) BestBid() (BookEntry, bool) {
	if len(s.Bids) == 0 {
		return BookEntry{}, false
	}
	return s.Bids[0], true
}

// BestAsk returns the lowest-priced ask, if any.
func (s *OrderBookSnapshot) BestAsk() (BookEntry, bool) {
	if len(s.Asks) == 0 {
		return BookEntry{}, false
	}
	return s.Asks[0], true
}

// PoolState is a point-in-time read of an AMM pool plus derived stats.
//
// TVL uses the 2x-quote-reserve approximation: the pool is assumed to be
// roughly balanced in value and reporting is always in quote-asset units.
// When the pool is imbalanced this under- or over-counts true
// mark-to-market TVL.
type PoolState struct {
	PairLabel string          `json:"pair"`
	ReserveA  decimal.Decimal `json:"reserveA"`
	ReserveB  decimal.Decimal `json:"reserveB"`
	LPSupply  decimal.Decimal `json:"lpSupply"`
	FeeRatio  decimal.Decimal `json:"feeRatio"` // in [0, 1)
	TVL       decimal.Decimal `json:"tvl"`
	MarketCap decimal.Decimal `json:"marketCap"`
	Account   string          `json:"account"`
}

// TvlHistoryPoint is one step of a pool's cumulative TVL series.
// Within a series, TimeMillis values are non-decreasing.
type TvlHistoryPoint struct {
	TimeMillis int64           `json:"time"`
	TVL        decimal.Decimal `json:"tvl"`
}
