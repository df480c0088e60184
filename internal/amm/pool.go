// Package amm reads on-ledger AMM pool state and rebuilds pool TVL
// history from transaction records.
//
// All monetary values use shopspring/decimal — never float64 for money.
package amm

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/xrplquantum/dex-engine/internal/asset"
	"github.com/xrplquantum/dex-engine/internal/dexerr"
	"github.com/xrplquantum/dex-engine/internal/model"
	"github.com/xrplquantum/dex-engine/internal/xrpl"
)

// FeeScale converts the ledger's raw trading-fee units to a ratio. The
// ledger stores fees in five-decimal fixed point: raw 1000 means 1%
// (1000/100000 = 0.01). Dividing by anything else is a frequent source of
// off-by-10x fee bugs.
var FeeScale = decimal.NewFromInt(100000)

var two = decimal.NewFromInt(2)

// PoolService reads AMM pool state fresh from the ledger on every query.
type PoolService struct {
	ledger xrpl.LedgerQuery

	// oracleRate converts quote-asset units to USD for the market cap
	// figure. It is external configuration, not computed here.
	oracleRate decimal.Decimal
}

// NewPoolService creates a pool reader. oracleRate is the static
// quote-asset/USD conversion used for market cap.
func NewPoolService(ledger xrpl.LedgerQuery, oracleRate decimal.Decimal) *PoolService {
	return &PoolService{ledger: ledger, oracleRate: oracleRate}
}

// State queries the pair's AMM pool and derives its statistics.
//
// TVL is 2x the quote reserve — a documented approximation that assumes
// the pool is roughly balanced in value, not a general TVL formula.
// Returns dexerr.ErrNotFound when the ledger has no pool for the pair.
func (s *PoolService) State(ctx context.Context, pair *model.Pair) (*model.PoolState, error) {
	info, err := s.ledger.AMMInfo(ctx, pair.BaseAsset(), pair.QuoteAsset())
	if err != nil {
		return nil, err
	}

	reserveA, err := asset.FromWire(info.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: pool reserve A: %v", dexerr.ErrUpstreamQuery, err)
	}
	reserveB, err := asset.FromWire(info.Amount2)
	if err != nil {
		return nil, fmt.Errorf("%w: pool reserve B: %v", dexerr.ErrUpstreamQuery, err)
	}

	lpSupply := decimal.Zero
	if info.LPToken.Value != "" {
		lpSupply, err = decimal.NewFromString(info.LPToken.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: lp supply %q: %v", dexerr.ErrUpstreamQuery, info.LPToken.Value, err)
		}
	}

	fee := decimal.NewFromInt(info.TradingFee).Div(FeeScale)
	tvl := two.Mul(reserveB)

	return &model.PoolState{
		PairLabel: pair.Label(),
		ReserveA:  reserveA,
		ReserveB:  reserveB,
		LPSupply:  lpSupply,
		FeeRatio:  fee,
		TVL:       tvl,
		MarketCap: tvl.Mul(s.oracleRate),
		Account:   info.Account,
	}, nil
}

// ErrEmptyPool is returned by the swap math when a reserve is non-positive.
var ErrEmptyPool = errors.New("amm: pool reserve must be positive")

// SpotPrice returns the instantaneous price of the output asset in input
// units: reserveIn / reserveOut.
func SpotPrice(reserveIn, reserveOut decimal.Decimal) (decimal.Decimal, error) {
	if !reserveIn.IsPositive() || !reserveOut.IsPositive() {
		return decimal.Zero, ErrEmptyPool
	}
	return reserveIn.Div(reserveOut), nil
}

// SwapOutput computes the constant-product output for swapping amountIn
// into the pool, net of the trading fee:
//
//	out = reserveOut * inEff / (reserveIn + inEff),  inEff = in * (1 - fee)
//
// The invariant reserveIn * reserveOut never decreases across the swap.
func SwapOutput(reserveIn, reserveOut, amountIn, feeRatio decimal.Decimal) (decimal.Decimal, error) {
	if !reserveIn.IsPositive() || !reserveOut.IsPositive() {
		return decimal.Zero, ErrEmptyPool
	}
	if !amountIn.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: swap input must be positive", dexerr.ErrInvalidAmount)
	}
	if feeRatio.IsNegative() || feeRatio.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("amm: fee ratio %s outside [0,1)", feeRatio)
	}

	inEff := amountIn.Mul(decimal.NewFromInt(1).Sub(feeRatio))
	return reserveOut.Mul(inEff).Div(reserveIn.Add(inEff)), nil
}

// EstimateSwap quotes a swap against the pair's pool at current reserves.
// When quoteIn is true the input is the quote asset and the output the
// base asset; otherwise the reverse.
func (s *PoolService) EstimateSwap(ctx context.Context, pair *model.Pair, amountIn decimal.Decimal, quoteIn bool) (decimal.Decimal, error) {
	state, err := s.State(ctx, pair)
	if err != nil {
		return decimal.Zero, err
	}
	if quoteIn {
		return SwapOutput(state.ReserveB, state.ReserveA, amountIn, state.FeeRatio)
	}
	return SwapOutput(state.ReserveA, state.ReserveB, amountIn, state.FeeRatio)
}
