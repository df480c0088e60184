package swap

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/xrplquantum/dex-engine/internal/asset"
	"github.com/xrplquantum/dex-engine/internal/dexerr"
	"github.com/xrplquantum/dex-engine/internal/xrpl"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

type stubPathFinder struct {
	xrpl.LedgerQuery
	alts []xrpl.PathAlternative
	err  error

	gotRequest *xrpl.PathFindRequest
}

func (s *stubPathFinder) RipplePathFind(_ context.Context, req xrpl.PathFindRequest) ([]xrpl.PathAlternative, error) {
	s.gotRequest = &req
	if s.err != nil {
		return nil, s.err
	}
	return s.alts, nil
}

func baseRequest() Request {
	return Request{
		SourceAccount:     "rSource",
		Output:            asset.Issued("XQNT", "rIssuer"),
		OutputAmount:      d(100),
		InputBudget:       asset.Native(),
		InputBudgetAmount: d(50),
	}
}

func TestPlan_BasicFields(t *testing.T) {
	planner := NewPlanner(&stubPathFinder{})
	plan, err := planner.Plan(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if plan.TransactionType != "Payment" {
		t.Errorf("expected Payment, got %s", plan.TransactionType)
	}
	if plan.Destination != "rSource" {
		t.Errorf("destination should default to source, got %s", plan.Destination)
	}

	amt, ok := plan.Amount.(asset.IssuedAmount)
	if !ok {
		t.Fatalf("expected issued amount, got %T", plan.Amount)
	}
	if amt.Value != "100" || amt.Issuer != "rIssuer" {
		t.Errorf("unexpected amount: %+v", amt)
	}

	// Default slippage: 50 XRP * 1.2 = 60 XRP = 60000000 drops.
	if plan.SendMax != "60000000" {
		t.Errorf("expected send max 60000000 drops, got %v", plan.SendMax)
	}
	if plan.Flags != 0 {
		t.Errorf("expected no flags, got %d", plan.Flags)
	}
	if plan.DeliverMin != nil {
		t.Errorf("expected no deliver min, got %v", plan.DeliverMin)
	}
}

func TestPlan_ExplicitDestinationAndSlippage(t *testing.T) {
	req := baseRequest()
	req.Destination = "rDest"
	req.SlippageFactor = d(1.05)

	plan, err := NewPlanner(&stubPathFinder{}).Plan(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Destination != "rDest" {
		t.Errorf("expected rDest, got %s", plan.Destination)
	}
	if plan.SendMax != "52500000" { // 50 * 1.05 XRP in drops
		t.Errorf("expected 52500000 drops, got %v", plan.SendMax)
	}
}

func TestPlan_PartialPaymentSetsFlagAndDeliverMin(t *testing.T) {
	req := baseRequest()
	req.PartialPayment = true
	req.DeliverMin = d(90)

	plan, err := NewPlanner(&stubPathFinder{}).Plan(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Flags&0x00020000 == 0 {
		t.Errorf("expected tfPartialPayment set, got flags %d", plan.Flags)
	}
	dm, ok := plan.DeliverMin.(asset.IssuedAmount)
	if !ok || dm.Value != "90" {
		t.Errorf("unexpected deliver min: %v", plan.DeliverMin)
	}
}

func TestPlan_DeliverMinWithoutPartialPayment(t *testing.T) {
	req := baseRequest()
	req.DeliverMin = d(90) // less than output, no partial payment

	if _, err := NewPlanner(&stubPathFinder{}).Plan(context.Background(), req); !errors.Is(err, dexerr.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}

	// Equal to the output amount is allowed.
	req.DeliverMin = d(100)
	if _, err := NewPlanner(&stubPathFinder{}).Plan(context.Background(), req); err != nil {
		t.Errorf("deliver min equal to output should pass, got %v", err)
	}
}

func TestPlan_RejectsNonPositiveAmounts(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Request)
	}{
		{"zero output", func(r *Request) { r.OutputAmount = decimal.Zero }},
		{"negative budget", func(r *Request) { r.InputBudgetAmount = d(-1) }},
		{"rounds to zero", func(r *Request) { r.OutputAmount = decimal.New(1, -12) }},
	}
	for _, tt := range cases {
		req := baseRequest()
		tt.mutate(&req)
		if _, err := NewPlanner(&stubPathFinder{}).Plan(context.Background(), req); !errors.Is(err, dexerr.ErrInvalidAmount) {
			t.Errorf("%s: expected ErrInvalidAmount, got %v", tt.name, err)
		}
	}
}

func TestPlan_MissingIssuer(t *testing.T) {
	req := baseRequest()
	req.Output = asset.Issued("XQNT", "")
	if _, err := NewPlanner(&stubPathFinder{}).Plan(context.Background(), req); !errors.Is(err, dexerr.ErrMissingIssuer) {
		t.Errorf("expected ErrMissingIssuer, got %v", err)
	}
}

func TestPlan_UsesComputedPaths(t *testing.T) {
	paths := json.RawMessage(`[[{"account":"rHop"}]]`)
	finder := &stubPathFinder{alts: []xrpl.PathAlternative{{PathsComputed: paths}}}

	plan, err := NewPlanner(finder).Plan(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(plan.Paths) != string(paths) {
		t.Errorf("expected computed paths, got %s", plan.Paths)
	}
	if finder.gotRequest == nil {
		t.Fatal("expected a path find request")
	}
	if finder.gotRequest.SourceAccount != "rSource" || finder.gotRequest.DestinationAccount != "rSource" {
		t.Errorf("unexpected path find accounts: %+v", finder.gotRequest)
	}
}

func TestPlan_PathFindFailureIsNonFatal(t *testing.T) {
	finder := &stubPathFinder{err: errors.New("path finder down")}
	plan, err := NewPlanner(finder).Plan(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("path find failure must not fail planning, got %v", err)
	}
	if plan.Paths != nil {
		t.Errorf("expected routeless plan, got paths %s", plan.Paths)
	}
}

func TestPlan_ExplicitPathsSkipPathFinding(t *testing.T) {
	finder := &stubPathFinder{}
	req := baseRequest()
	req.Paths = json.RawMessage(`[[{"account":"rExplicit"}]]`)

	plan, err := NewPlanner(finder).Plan(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(plan.Paths) != string(req.Paths) {
		t.Errorf("expected explicit paths preserved")
	}
	if finder.gotRequest != nil {
		t.Error("path finder should not be called when a route is supplied")
	}
}
