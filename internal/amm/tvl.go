package amm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"

	"github.com/xrplquantum/dex-engine/internal/asset"
	"github.com/xrplquantum/dex-engine/internal/dexerr"
	"github.com/xrplquantum/dex-engine/internal/metrics"
	"github.com/xrplquantum/dex-engine/internal/model"
	"github.com/xrplquantum/dex-engine/internal/xrpl"
)

// rippleEpochOffset converts ledger timestamps (seconds since
// 2000-01-01T00:00:00Z) to Unix seconds.
const rippleEpochOffset = 946684800

// Liquidity-affecting transaction types. Everything else is a no-op on
// the TVL series.
const (
	txAMMDeposit  = "AMMDeposit"
	txAMMWithdraw = "AMMWithdraw"
)

// HistoryBuilder rebuilds a pool account's cumulative TVL series from its
// full paginated transaction history. The series is rebuilt from scratch
// on every request; nothing is persisted here.
type HistoryBuilder struct {
	ledger xrpl.LedgerQuery

	// PageSize is the account_tx page size.
	PageSize int

	// MaxPages bounds the pagination walk. A corrupted or adversarial
	// account history must not make the builder walk forever.
	MaxPages int

	// TimeBudget bounds the whole fetch phase.
	TimeBudget time.Duration

	// PageRetries is the number of extra attempts per failed page fetch.
	PageRetries uint64
}

// NewHistoryBuilder creates a builder with production defaults.
func NewHistoryBuilder(ledger xrpl.LedgerQuery) *HistoryBuilder {
	return &HistoryBuilder{
		ledger:      ledger,
		PageSize:    200,
		MaxPages:    500,
		TimeBudget:  2 * time.Minute,
		PageRetries: 2,
	}
}

// Build fetches the pool account's complete transaction history, orders
// it by ledger time, and folds liquidity deposits and withdrawals into a
// cumulative TVL series.
//
// Transactions without a usable timestamp are skipped (they cannot be
// placed in causal order), as are records whose amount does not decode —
// one bad record never fails the series. Exhausting the page or time
// budget fails the whole build with dexerr.ErrExceededBudget: a partial,
// unsorted history would produce a meaningless cumulative sum.
func (b *HistoryBuilder) Build(ctx context.Context, poolAccount string) ([]model.TvlHistoryPoint, error) {
	if poolAccount == "" {
		return nil, fmt.Errorf("%w: pool account is required", dexerr.ErrInvalidInput)
	}

	ctx, cancel := context.WithTimeout(ctx, b.TimeBudget)
	defer cancel()

	txs, pages, err := b.fetchAll(ctx, poolAccount)
	if err != nil {
		return nil, err
	}
	metrics.TvlHistoryPages.Observe(float64(pages))

	return reduce(txs, poolAccount), nil
}

// fetchAll walks the marker chain until the history is exhausted. The
// loop is inherently sequential: each page's cursor comes from the prior
// response. Individual page fetches retry with exponential backoff.
func (b *HistoryBuilder) fetchAll(ctx context.Context, account string) ([]xrpl.RawTx, int, error) {
	var all []xrpl.RawTx
	var marker []byte
	pages := 0

	for {
		if pages >= b.MaxPages {
			return nil, pages, fmt.Errorf("%w: more than %d account_tx pages for %s",
				dexerr.ErrExceededBudget, b.MaxPages, account)
		}

		var page *xrpl.AccountTxPage
		fetch := func() error {
			var err error
			page, err = b.ledger.AccountTx(ctx, account, marker, b.PageSize)
			return err
		}
		pol := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), b.PageRetries), ctx)
		if err := backoff.Retry(fetch, pol); err != nil {
			switch {
			case errors.Is(ctx.Err(), context.DeadlineExceeded):
				return nil, pages, fmt.Errorf("%w: history fetch for %s: %v",
					dexerr.ErrExceededBudget, account, ctx.Err())
			case ctx.Err() != nil:
				// The caller went away; that is a cancellation, not a
				// budget breach.
				return nil, pages, fmt.Errorf("history fetch for %s: %w", account, ctx.Err())
			default:
				return nil, pages, err
			}
		}
		pages++

		all = append(all, page.Transactions...)
		if len(page.Marker) == 0 {
			return all, pages, nil
		}
		marker = page.Marker
	}
}

// reduce sorts transactions by ledger time and folds deposits and
// withdrawals into a running total, emitting one point per event. The
// arithmetic is exact decimal; no floating accumulation.
func reduce(txs []xrpl.RawTx, account string) []model.TvlHistoryPoint {
	dated := make([]xrpl.RawTx, 0, len(txs))
	for _, tx := range txs {
		if tx.Tx.Date == nil {
			continue
		}
		dated = append(dated, tx)
	}
	sort.SliceStable(dated, func(i, j int) bool {
		return *dated[i].Tx.Date < *dated[j].Tx.Date
	})

	running := decimal.Zero
	points := []model.TvlHistoryPoint{}

	for _, tx := range dated {
		if tx.Tx.TransactionType != txAMMDeposit && tx.Tx.TransactionType != txAMMWithdraw {
			continue
		}

		amount, err := asset.FromWire(tx.Tx.Amount)
		if err != nil {
			metrics.DroppedRecordsTotal.WithLabelValues("tvl_tx").Inc()
			slog.Warn("dropping history record with undecodable amount",
				"account", account, "type", tx.Tx.TransactionType, "err", err)
			continue
		}

		if tx.Tx.TransactionType == txAMMDeposit {
			running = running.Add(amount)
		} else {
			running = running.Sub(amount)
		}

		points = append(points, model.TvlHistoryPoint{
			TimeMillis: (*tx.Tx.Date + rippleEpochOffset) * 1000,
			TVL:        running,
		})
	}
	return points
}
