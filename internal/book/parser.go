// Package book builds normalized two-sided order books from the ledger's
// directional offer queries.
//
// The ledger's book_offers query is one-directional, so a full book needs
// two queries (base-for-quote and quote-for-base). Offers arrive in two
// encodings per amount field; internal/asset normalizes them to exact
// decimals before any comparison. Malformed offers are dropped one at a
// time — a single bad record never fails a snapshot.
package book

import (
	"fmt"
	"math"
	"strconv"

	"github.com/xrplquantum/dex-engine/internal/asset"
	"github.com/xrplquantum/dex-engine/internal/model"
	"github.com/xrplquantum/dex-engine/internal/xrpl"
)

// parseOffer normalizes one raw offer into a BookEntry.
//
// Classification: when the offer creator pays more than they get, they are
// asking a premium — selling, so the entry is an Ask. Price is
// TakerPays/TakerGets for asks and the inverse for bids, which keeps every
// price strictly positive. Size is the side-appropriate quantity:
// TakerGets for bids, TakerPays for asks.
func parseOffer(off xrpl.RawOffer, pairID string) (model.BookEntry, error) {
	takerPays, err := asset.FromWire(off.TakerPays)
	if err != nil {
		return model.BookEntry{}, fmt.Errorf("taker_pays: %w", err)
	}
	takerGets, err := asset.FromWire(off.TakerGets)
	if err != nil {
		return model.BookEntry{}, fmt.Errorf("taker_gets: %w", err)
	}

	// Zero on either leg would make the derived price zero or undefined.
	if !takerPays.IsPositive() || !takerGets.IsPositive() {
		return model.BookEntry{}, fmt.Errorf("non-positive amounts: pays=%s gets=%s", takerPays, takerGets)
	}

	side := model.Bid
	price := takerGets.Div(takerPays)
	size := takerGets
	if takerPays.GreaterThan(takerGets) {
		side = model.Ask
		price = takerPays.Div(takerGets)
		size = takerPays
	}

	if !price.IsPositive() {
		return model.BookEntry{}, fmt.Errorf("non-positive price %s", price)
	}

	id := "unknown"
	if off.Sequence != 0 {
		id = strconv.FormatUint(uint64(off.Sequence), 10)
	}

	return model.BookEntry{
		ID:           id,
		PairID:       pairID,
		Side:         side,
		Price:        price,
		Size:         size,
		OwnerAddress: off.Account,
	}, nil
}

// entrySeq returns the entry's offer sequence for tie-breaking. Entries
// without a known sequence sort after numbered ones at equal price.
func entrySeq(e model.BookEntry) uint64 {
	n, err := strconv.ParseUint(e.ID, 10, 64)
	if err != nil {
		return math.MaxUint64
	}
	return n
}
