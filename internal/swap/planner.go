// Package swap plans cross-asset payments against order-book and AMM
// liquidity: it derives the Amount/SendMax/DeliverMin/Paths/Flags field
// set for a Payment transaction. The engine only constructs fields; the
// external proposal service handles signing and submission.
package swap

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/xrplquantum/dex-engine/internal/asset"
	"github.com/xrplquantum/dex-engine/internal/dexerr"
	"github.com/xrplquantum/dex-engine/internal/metrics"
	"github.com/xrplquantum/dex-engine/internal/xrpl"
)

// MaxDecimals is the wire precision for amounts: values must round to a
// positive number at 8 decimal places.
const MaxDecimals = 8

// tfPartialPayment allows the delivered amount to fall short of Amount,
// bounded below by DeliverMin.
const tfPartialPayment uint32 = 0x00020000

// DefaultSlippage pads the input budget by 20% so path quality drift
// between planning and execution does not fail the payment.
var DefaultSlippage = decimal.NewFromFloat(1.2)

// Request describes a desired swap.
type Request struct {
	SourceAccount string
	// Destination defaults to SourceAccount (a self-swap).
	Destination string

	Output       asset.Asset
	OutputAmount decimal.Decimal

	InputBudget       asset.Asset
	InputBudgetAmount decimal.Decimal

	// SlippageFactor multiplies the input budget; zero means
	// DefaultSlippage.
	SlippageFactor decimal.Decimal

	// DeliverMin, when positive, sets the minimum deliverable floor.
	DeliverMin decimal.Decimal

	PartialPayment bool

	// Paths is an explicit route; when empty the planner asks the ledger's
	// path finder, best-effort.
	Paths json.RawMessage
}

// Plan is the constructed Payment field set, ready for handoff to the
// transaction proposal service. Field names follow the ledger's
// transaction format.
type Plan struct {
	TransactionType string          `json:"TransactionType"`
	Account         string          `json:"Account"`
	Destination     string          `json:"Destination"`
	Amount          any             `json:"Amount"`
	SendMax         any             `json:"SendMax"`
	DeliverMin      any             `json:"DeliverMin,omitempty"`
	Flags           uint32          `json:"Flags,omitempty"`
	Paths           json.RawMessage `json:"Paths,omitempty"`
}

// Planner builds swap plans. Stateless.
type Planner struct {
	ledger xrpl.LedgerQuery
}

// NewPlanner creates a planner that uses ledger for path finding.
func NewPlanner(ledger xrpl.LedgerQuery) *Planner {
	return &Planner{ledger: ledger}
}

// Plan validates the request and assembles the Payment fields.
//
// Path finding is best-effort: when the ledger's path finder fails or
// returns nothing, the plan goes out routeless and the ledger works with
// direct liquidity at execution time.
func (p *Planner) Plan(ctx context.Context, req Request) (*Plan, error) {
	plan, err := p.plan(ctx, req)
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.SwapPlansTotal.WithLabelValues(status).Inc()
	return plan, err
}

func (p *Planner) plan(ctx context.Context, req Request) (*Plan, error) {
	if req.SourceAccount == "" {
		return nil, fmt.Errorf("%w: source account is required", dexerr.ErrInvalidInput)
	}

	outAmount := req.OutputAmount.Round(MaxDecimals)
	budget := req.InputBudgetAmount.Round(MaxDecimals)
	if !outAmount.IsPositive() || !budget.IsPositive() {
		return nil, fmt.Errorf("%w: output and budget must round positive at %d decimals",
			dexerr.ErrInvalidAmount, MaxDecimals)
	}

	// Without partial payment the ledger delivers Amount in full or fails,
	// so any other deliver-minimum is contradictory.
	if !req.PartialPayment && req.DeliverMin.IsPositive() && !req.DeliverMin.Round(MaxDecimals).Equal(outAmount) {
		return nil, fmt.Errorf("%w: deliver minimum requires partial payment unless equal to the output amount",
			dexerr.ErrInvalidInput)
	}

	slippage := req.SlippageFactor
	if slippage.IsZero() {
		slippage = DefaultSlippage
	}
	if slippage.LessThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("%w: slippage factor %s below 1", dexerr.ErrInvalidInput, slippage)
	}
	adjustedBudget := budget.Mul(slippage).Round(MaxDecimals)

	destination := req.Destination
	if destination == "" {
		destination = req.SourceAccount
	}

	amountField, err := asset.ToWire(req.Output, outAmount)
	if err != nil {
		return nil, err
	}
	sendMaxField, err := asset.ToWire(req.InputBudget, adjustedBudget)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		TransactionType: "Payment",
		Account:         req.SourceAccount,
		Destination:     destination,
		Amount:          amountField,
		SendMax:         sendMaxField,
	}

	if req.PartialPayment {
		plan.Flags |= tfPartialPayment
	}

	if req.DeliverMin.IsPositive() {
		dm, err := asset.ToWire(req.Output, req.DeliverMin.Round(MaxDecimals))
		if err != nil {
			return nil, err
		}
		plan.DeliverMin = dm
	}

	plan.Paths = req.Paths
	if len(plan.Paths) == 0 {
		plan.Paths = p.findPaths(ctx, req, destination, amountField)
	}

	return plan, nil
}

// findPaths asks the ledger for a route and returns the best
// alternative's computed paths, or nil when none are usable.
func (p *Planner) findPaths(ctx context.Context, req Request, destination string, destinationAmount any) json.RawMessage {
	sourceCurrency := map[string]string{"currency": asset.ToWireCode(req.InputBudget.Currency)}
	alts, err := p.ledger.RipplePathFind(ctx, xrpl.PathFindRequest{
		SourceAccount:      req.SourceAccount,
		DestinationAccount: destination,
		DestinationAmount:  destinationAmount,
		SourceCurrencies:   []any{sourceCurrency},
	})
	if err != nil {
		slog.Warn("path finding failed, planning routeless swap",
			"source", req.SourceAccount, "err", err)
		return nil
	}
	if len(alts) == 0 || len(alts[0].PathsComputed) == 0 {
		return nil
	}
	return alts[0].PathsComputed
}
