package book

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xrplquantum/dex-engine/internal/asset"
	"github.com/xrplquantum/dex-engine/internal/dexerr"
	"github.com/xrplquantum/dex-engine/internal/metrics"
	"github.com/xrplquantum/dex-engine/internal/model"
	"github.com/xrplquantum/dex-engine/internal/xrpl"
)

// DefaultDepth is the per-direction book_offers limit.
const DefaultDepth = 50

var two = decimal.NewFromInt(2)

// Service assembles order book snapshots. Stateless; every snapshot is
// re-derived from fresh ledger queries.
type Service struct {
	ledger xrpl.LedgerQuery
	depth  int
}

// NewService creates a book service. depth <= 0 uses DefaultDepth.
func NewService(ledger xrpl.LedgerQuery, depth int) *Service {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Service{ledger: ledger, depth: depth}
}

// Snapshot queries both book directions concurrently, merges and
// classifies the offers, and derives the mid price. Failure of either
// directional query fails the whole snapshot — no partial books.
func (s *Service) Snapshot(ctx context.Context, pair *model.Pair) (*model.OrderBookSnapshot, error) {
	base := pair.BaseAsset()
	quote := pair.QuoteAsset()

	var dirA, dirB []xrpl.RawOffer
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		offers, err := s.ledger.BookOffers(gctx, quote, base, s.depth)
		if err != nil {
			return fmt.Errorf("book %s->%s: %w", pair.QuoteToken, pair.BaseToken, err)
		}
		dirA = offers
		return nil
	})
	g.Go(func() error {
		offers, err := s.ledger.BookOffers(gctx, base, quote, s.depth)
		if err != nil {
			return fmt.Errorf("book %s->%s: %w", pair.BaseToken, pair.QuoteToken, err)
		}
		dirB = offers
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap := aggregate(append(dirA, dirB...), pair.ID)
	metrics.BookSnapshotsTotal.Inc()
	return snap, nil
}

// aggregate partitions parsed entries into sorted bid/ask ledgers and
// computes the mid price.
func aggregate(raw []xrpl.RawOffer, pairID string) *model.OrderBookSnapshot {
	bids := []model.BookEntry{}
	asks := []model.BookEntry{}

	for _, off := range raw {
		entry, err := parseOffer(off, pairID)
		if err != nil {
			metrics.DroppedRecordsTotal.WithLabelValues("offer").Inc()
			slog.Warn("dropping malformed offer", "pair", pairID, "owner", off.Account, "err", err)
			continue
		}
		if entry.Side == model.Bid {
			bids = append(bids, entry)
		} else {
			asks = append(asks, entry)
		}
	}

	// Best bid first, best ask first. Equal prices break ties by offer
	// sequence ascending (oldest offer first).
	sort.SliceStable(bids, func(i, j int) bool {
		if !bids[i].Price.Equal(bids[j].Price) {
			return bids[i].Price.GreaterThan(bids[j].Price)
		}
		return entrySeq(bids[i]) < entrySeq(bids[j])
	})
	sort.SliceStable(asks, func(i, j int) bool {
		if !asks[i].Price.Equal(asks[j].Price) {
			return asks[i].Price.LessThan(asks[j].Price)
		}
		return entrySeq(asks[i]) < entrySeq(asks[j])
	})

	snap := &model.OrderBookSnapshot{Bids: bids, Asks: asks}
	switch {
	case len(bids) > 0 && len(asks) > 0:
		snap.MidPrice = bids[0].Price.Add(asks[0].Price).Div(two)
		snap.MidPriceAvailable = true
	case len(bids) > 0:
		snap.MidPrice = bids[0].Price
		snap.MidPriceAvailable = true
	case len(asks) > 0:
		snap.MidPrice = asks[0].Price
		snap.MidPriceAvailable = true
	}
	return snap
}

// EstimateRate estimates the quote-asset value of amount units of the
// pair's base asset against the best resting offer in the quote->base
// book. Returns dexerr.ErrNotFound when the book is empty.
func (s *Service) EstimateRate(ctx context.Context, pair *model.Pair, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: amount must be positive", dexerr.ErrInvalidInput)
	}

	offers, err := s.ledger.BookOffers(ctx, pair.QuoteAsset(), pair.BaseAsset(), 1)
	if err != nil {
		return decimal.Zero, err
	}
	if len(offers) == 0 {
		return decimal.Zero, fmt.Errorf("%w: no offers in order book", dexerr.ErrNotFound)
	}

	best := offers[0]
	takerGets, err := asset.FromWire(best.TakerGets)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: best offer taker_gets: %v", dexerr.ErrUpstreamQuery, err)
	}
	takerPays, err := asset.FromWire(best.TakerPays)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: best offer taker_pays: %v", dexerr.ErrUpstreamQuery, err)
	}
	if !takerGets.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: best offer has zero taker_gets", dexerr.ErrUpstreamQuery)
	}

	rate := takerPays.Div(takerGets)
	return amount.Mul(rate), nil
}
