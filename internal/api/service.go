// Package api provides the HTTP handlers that expose order books, pool
// state, TVL history, and swap planning to trading UIs.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xrplquantum/dex-engine/internal/amm"
	"github.com/xrplquantum/dex-engine/internal/asset"
	"github.com/xrplquantum/dex-engine/internal/book"
	"github.com/xrplquantum/dex-engine/internal/dexerr"
	"github.com/xrplquantum/dex-engine/internal/model"
	"github.com/xrplquantum/dex-engine/internal/proposal"
	"github.com/xrplquantum/dex-engine/internal/store"
	"github.com/xrplquantum/dex-engine/internal/swap"
	"github.com/xrplquantum/dex-engine/internal/xrpl"
)

// MidPriceUnavailable is the sentinel the UI shows when neither book side
// has entries. An empty book is "no data", not an error.
const MidPriceUnavailable = "unavailable"

// Service wires the engine's components behind HTTP handlers. All state
// lives in the collaborators; the service itself is stateless.
type Service struct {
	pairs     store.Store
	books     *book.Service
	pools     *amm.PoolService
	history   *amm.HistoryBuilder
	planner   *swap.Planner
	proposals proposal.Service
	ledger    xrpl.LedgerQuery
	hub       *WSHub // optional; nil disables broadcasting
}

// NewService creates the API service. Pass nil for hub if WebSocket
// broadcasting is not needed.
func NewService(
	pairs store.Store,
	books *book.Service,
	pools *amm.PoolService,
	history *amm.HistoryBuilder,
	planner *swap.Planner,
	proposals proposal.Service,
	ledger xrpl.LedgerQuery,
	hub *WSHub,
) *Service {
	return &Service{
		pairs:     pairs,
		books:     books,
		pools:     pools,
		history:   history,
		planner:   planner,
		proposals: proposals,
		ledger:    ledger,
		hub:       hub,
	}
}

// Routes mounts all handlers on r.
func (s *Service) Routes(r chi.Router) {
	r.Get("/pairs", s.ListPairs)
	r.Post("/pairs", s.CreatePair)
	r.Get("/pairs/{pairID}", s.GetPair)
	r.Post("/pairs/{pairID}/approve", s.ApprovePair)
	r.Get("/pairs/{pairID}/book", s.GetOrderBook)
	r.Get("/pairs/{pairID}/pool", s.GetPool)
	r.Get("/pairs/{pairID}/tvl-history", s.GetTvlHistory)
	r.Get("/pairs/{pairID}/rate", s.GetRate)
	r.Get("/pairs/{pairID}/quote", s.GetQuote)
	r.Post("/swap", s.PlanSwap)
	r.Post("/pathfind", s.PathFind)
}

// --- Pair management ---

// CreatePairRequest is the JSON body for pair creation.
type CreatePairRequest struct {
	BaseToken  string `json:"base_token"`
	QuoteToken string `json:"quote_token"`
	BaseIssuer string `json:"base_issuer"`
	CreatedBy  string `json:"created_by"`
}

// CreatePair handles POST /api/v1/pairs.
func (s *Service) CreatePair(w http.ResponseWriter, r *http.Request) {
	var req CreatePairRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.BaseToken == "" || req.QuoteToken == "" {
		writeError(w, "base_token and quote_token are required", http.StatusBadRequest)
		return
	}
	if req.BaseToken != asset.NativeCurrency && req.BaseIssuer == "" {
		writeError(w, dexerr.ErrMissingIssuer.Error(), http.StatusBadRequest)
		return
	}

	pair := &model.Pair{
		ID:         uuid.New().String(),
		BaseToken:  req.BaseToken,
		QuoteToken: req.QuoteToken,
		BaseIssuer: req.BaseIssuer,
		Status:     "pending",
		CreatedBy:  req.CreatedBy,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.pairs.CreatePair(r.Context(), pair); err != nil {
		writeError(w, err.Error(), http.StatusConflict)
		return
	}

	slog.Info("pair created", "id", pair.ID, "pair", pair.Label(), "by", req.CreatedBy)
	writeJSON(w, http.StatusCreated, pair)
}

// GetPair handles GET /api/v1/pairs/{pairID}.
func (s *Service) GetPair(w http.ResponseWriter, r *http.Request) {
	pair, ok := s.loadPair(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// ListPairs handles GET /api/v1/pairs, optionally filtered by ?status=.
func (s *Service) ListPairs(w http.ResponseWriter, r *http.Request) {
	pairs, err := s.pairs.ListPairs(r.Context())
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	if pairs == nil {
		pairs = []model.Pair{}
	}

	if status := r.URL.Query().Get("status"); status != "" {
		filtered := []model.Pair{}
		for _, p := range pairs {
			if p.Status == status {
				filtered = append(filtered, p)
			}
		}
		pairs = filtered
	}
	writeJSON(w, http.StatusOK, pairs)
}

// ApprovePair handles POST /api/v1/pairs/{pairID}/approve.
func (s *Service) ApprovePair(w http.ResponseWriter, r *http.Request) {
	pairID := chi.URLParam(r, "pairID")
	if err := s.pairs.UpdatePairStatus(r.Context(), pairID, "approved"); err != nil {
		s.writeFailure(w, err)
		return
	}
	slog.Info("pair approved", "id", pairID)
	writeJSON(w, http.StatusOK, map[string]string{"id": pairID, "status": "approved"})
}

// --- Order book ---

type bookEntryView struct {
	ID           string `json:"id"`
	PairID       string `json:"pair_id"`
	Side         string `json:"side"`
	Price        string `json:"price"`
	Size         string `json:"size"`
	OwnerAddress string `json:"owner_address"`
}

type orderBookResponse struct {
	Bids     []bookEntryView `json:"bids"`
	Asks     []bookEntryView `json:"asks"`
	MidPrice string          `json:"midPrice"`
}

func entryViews(entries []model.BookEntry) []bookEntryView {
	views := make([]bookEntryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, bookEntryView{
			ID:           e.ID,
			PairID:       e.PairID,
			Side:         string(e.Side),
			Price:        asset.FormatDisplay(e.Price),
			Size:         asset.FormatDisplay(e.Size),
			OwnerAddress: e.OwnerAddress,
		})
	}
	return views
}

// GetOrderBook handles GET /api/v1/pairs/{pairID}/book.
func (s *Service) GetOrderBook(w http.ResponseWriter, r *http.Request) {
	pair, ok := s.loadPair(w, r)
	if !ok {
		return
	}

	snap, err := s.books.Snapshot(r.Context(), pair)
	if err != nil {
		s.writeFailure(w, err)
		return
	}

	resp := orderBookResponse{
		Bids:     entryViews(snap.Bids),
		Asks:     entryViews(snap.Asks),
		MidPrice: MidPriceUnavailable,
	}
	if snap.MidPriceAvailable {
		resp.MidPrice = asset.FormatDisplay(snap.MidPrice)
	}

	if s.hub != nil {
		msg := WSMessage{Type: "book_update", PairID: pair.ID, MidPrice: resp.MidPrice}
		if bid, ok := snap.BestBid(); ok {
			msg.BestBid = asset.FormatDisplay(bid.Price)
		}
		if ask, ok := snap.BestAsk(); ok {
			msg.BestAsk = asset.FormatDisplay(ask.Price)
		}
		s.hub.Broadcast(msg)
	}

	writeJSON(w, http.StatusOK, resp)
}

// --- AMM pool ---

// GetPool handles GET /api/v1/pairs/{pairID}/pool.
func (s *Service) GetPool(w http.ResponseWriter, r *http.Request) {
	pair, ok := s.loadPair(w, r)
	if !ok {
		return
	}

	state, err := s.pools.State(r.Context(), pair)
	if err != nil {
		s.writeFailure(w, err)
		return
	}

	// Remember the pool account for history queries.
	if pair.PoolAccount == "" && state.Account != "" {
		if err := s.pairs.SetPoolAccount(r.Context(), pair.ID, state.Account); err != nil {
			slog.Warn("failed to persist pool account", "pair", pair.ID, "err", err)
		}
	}

	if s.hub != nil {
		s.hub.Broadcast(WSMessage{
			Type:   "pool_update",
			PairID: pair.ID,
			TVL:    asset.FormatDisplay(state.TVL),
		})
	}

	writeJSON(w, http.StatusOK, state)
}

// tvlPointView serializes tvl as a bare JSON number. Exact decimal
// strings stay internal; charting clients consume numbers.
type tvlPointView struct {
	Time int64           `json:"time"`
	TVL  json.RawMessage `json:"tvl"`
}

func tvlPointViews(points []model.TvlHistoryPoint) []tvlPointView {
	views := make([]tvlPointView, 0, len(points))
	for _, p := range points {
		views = append(views, tvlPointView{
			Time: p.TimeMillis,
			TVL:  json.RawMessage(p.TVL.String()),
		})
	}
	return views
}

// GetTvlHistory handles GET /api/v1/pairs/{pairID}/tvl-history.
func (s *Service) GetTvlHistory(w http.ResponseWriter, r *http.Request) {
	pair, ok := s.loadPair(w, r)
	if !ok {
		return
	}

	account := pair.PoolAccount
	if account == "" {
		// Pool account not cached yet; resolve it from the ledger.
		state, err := s.pools.State(r.Context(), pair)
		if err != nil {
			s.writeFailure(w, err)
			return
		}
		account = state.Account
	}

	points, err := s.history.Build(r.Context(), account)
	if err != nil {
		s.writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"points": tvlPointViews(points)})
}

// --- Rate / quote estimation ---

// GetRate handles GET /api/v1/pairs/{pairID}/rate?amount=N — estimates
// the quote value of N base units against the best resting offer.
func (s *Service) GetRate(w http.ResponseWriter, r *http.Request) {
	pair, ok := s.loadPair(w, r)
	if !ok {
		return
	}

	amount, err := decimal.NewFromString(r.URL.Query().Get("amount"))
	if err != nil {
		writeError(w, "amount must be a decimal number", http.StatusBadRequest)
		return
	}

	estimate, err := s.books.EstimateRate(r.Context(), pair, amount)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"estimated_value": asset.FormatDisplay(estimate),
	})
}

// GetQuote handles GET /api/v1/pairs/{pairID}/quote?amount=N&input=quote|base
// — quotes a swap against the pair's AMM pool at current reserves.
func (s *Service) GetQuote(w http.ResponseWriter, r *http.Request) {
	pair, ok := s.loadPair(w, r)
	if !ok {
		return
	}

	amount, err := decimal.NewFromString(r.URL.Query().Get("amount"))
	if err != nil {
		writeError(w, "amount must be a decimal number", http.StatusBadRequest)
		return
	}
	input := r.URL.Query().Get("input")
	if input == "" {
		input = "quote"
	}
	if input != "quote" && input != "base" {
		writeError(w, "input must be quote or base", http.StatusBadRequest)
		return
	}

	out, err := s.pools.EstimateSwap(r.Context(), pair, amount, input == "quote")
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"amount_out": asset.FormatDisplay(out),
	})
}

// --- Swap planning ---

// SwapRequest is the JSON body for POST /api/v1/swap.
type SwapRequest struct {
	UserAddress     string          `json:"user_address"`
	Destination     string          `json:"destination,omitempty"`
	CurrencyOut     string          `json:"currency_out"`
	IssuerOut       string          `json:"issuer_out,omitempty"`
	AmountOut       decimal.Decimal `json:"amount_out"`
	SendMaxCurrency string          `json:"send_max_currency"`
	SendMaxIssuer   string          `json:"send_max_issuer,omitempty"`
	SendMaxValue    decimal.Decimal `json:"send_max_value"`
	SlippageFactor  decimal.Decimal `json:"slippage_factor,omitempty"`
	PartialPayment  bool            `json:"partial_payment,omitempty"`
	DeliverMin      decimal.Decimal `json:"deliver_min,omitempty"`
	Paths           json.RawMessage `json:"paths,omitempty"`
}

// SwapResponse returns the proposal id along with the constructed fields.
type SwapResponse struct {
	ProposalID string     `json:"proposal_id"`
	Tx         *swap.Plan `json:"tx"`
}

// PlanSwap handles POST /api/v1/swap: plans the payment and hands the
// field set to the proposal service for wallet authorization.
func (s *Service) PlanSwap(w http.ResponseWriter, r *http.Request) {
	var req SwapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserAddress == "" || req.CurrencyOut == "" || req.SendMaxCurrency == "" {
		writeError(w, "user_address, currency_out and send_max_currency are required", http.StatusBadRequest)
		return
	}

	plan, err := s.planner.Plan(r.Context(), swap.Request{
		SourceAccount:     req.UserAddress,
		Destination:       req.Destination,
		Output:            asset.Issued(req.CurrencyOut, req.IssuerOut),
		OutputAmount:      req.AmountOut,
		InputBudget:       asset.Issued(req.SendMaxCurrency, req.SendMaxIssuer),
		InputBudgetAmount: req.SendMaxValue,
		SlippageFactor:    req.SlippageFactor,
		DeliverMin:        req.DeliverMin,
		PartialPayment:    req.PartialPayment,
		Paths:             req.Paths,
	})
	if err != nil {
		s.writeFailure(w, err)
		return
	}

	proposalID, err := s.proposals.CreateProposal(r.Context(), plan)
	if err != nil {
		s.writeFailure(w, err)
		return
	}

	slog.Info("swap planned",
		"proposal", proposalID,
		"account", req.UserAddress,
		"out", req.CurrencyOut,
		"amount_out", req.AmountOut.String(),
	)
	writeJSON(w, http.StatusOK, SwapResponse{ProposalID: proposalID, Tx: plan})
}

// --- Path finding ---

// PathFindRequest is the JSON body for POST /api/v1/pathfind.
type PathFindRequest struct {
	SourceAccount      string `json:"source_account"`
	DestinationAccount string `json:"destination_account"`
	DestinationAmount  any    `json:"destination_amount"`
	SourceCurrencies   []any  `json:"source_currencies,omitempty"`
}

// PathFind handles POST /api/v1/pathfind: a pass-through to the ledger's
// path finder.
func (s *Service) PathFind(w http.ResponseWriter, r *http.Request) {
	var req PathFindRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.SourceAccount == "" || req.DestinationAccount == "" || req.DestinationAmount == nil {
		writeError(w, "source_account, destination_account and destination_amount are required", http.StatusBadRequest)
		return
	}

	alts, err := s.ledger.RipplePathFind(r.Context(), xrpl.PathFindRequest{
		SourceAccount:      req.SourceAccount,
		DestinationAccount: req.DestinationAccount,
		DestinationAmount:  req.DestinationAmount,
		SourceCurrencies:   req.SourceCurrencies,
	})
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	if alts == nil {
		alts = []xrpl.PathAlternative{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"alternatives": alts})
}

// --- Helpers ---

// loadPair resolves {pairID} and writes the error response itself when
// the pair cannot be loaded.
func (s *Service) loadPair(w http.ResponseWriter, r *http.Request) (*model.Pair, bool) {
	pairID := chi.URLParam(r, "pairID")
	if pairID == "" {
		writeError(w, "pairID is required", http.StatusBadRequest)
		return nil, false
	}
	pair, err := s.pairs.GetPair(r.Context(), pairID)
	if err != nil {
		s.writeFailure(w, err)
		return nil, false
	}
	return pair, true
}

// writeFailure maps the error taxonomy to HTTP statuses.
func (s *Service) writeFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, dexerr.ErrNotFound):
		writeError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, dexerr.ErrInvalidInput),
		errors.Is(err, dexerr.ErrInvalidAmount),
		errors.Is(err, dexerr.ErrMissingIssuer):
		writeError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, dexerr.ErrUpstreamQuery),
		errors.Is(err, dexerr.ErrExceededBudget):
		writeError(w, err.Error(), http.StatusBadGateway)
	default:
		slog.Error("internal error", "err", err)
		writeError(w, "internal server error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
