// Package xrpl implements the ledger query collaborator: read-only
// JSON-RPC calls against a rippled/clio HTTP endpoint.
//
// Every call is an idempotent read, so the transport retries transient
// failures with bounded backoff (hashicorp/go-retryablehttp). Callers
// control cancellation and deadlines through the request context.
package xrpl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/xrplquantum/dex-engine/internal/asset"
	"github.com/xrplquantum/dex-engine/internal/dexerr"
	"github.com/xrplquantum/dex-engine/internal/metrics"
)

// LedgerQuery is the read-only ledger interface consumed by the book, amm,
// and swap services. Implementations must be safe for concurrent use.
type LedgerQuery interface {
	// BookOffers returns one direction of an order book: offers selling
	// takerGets for takerPays. A full two-sided book needs both directions.
	BookOffers(ctx context.Context, takerGets, takerPays asset.Asset, limit int) ([]RawOffer, error)

	// AMMInfo returns the AMM pool for the asset pair, or
	// dexerr.ErrNotFound when the ledger has no such pool.
	AMMInfo(ctx context.Context, a, b asset.Asset) (*RawPoolInfo, error)

	// AccountTx returns one page of an account's transaction history.
	// Pass the previous page's marker to continue; nil starts from the
	// oldest ledger (forward order).
	AccountTx(ctx context.Context, account string, marker json.RawMessage, limit int) (*AccountTxPage, error)

	// RipplePathFind returns candidate payment routes.
	RipplePathFind(ctx context.Context, req PathFindRequest) ([]PathAlternative, error)
}

// Client talks to a single rippled JSON-RPC endpoint.
type Client struct {
	url  string
	http *retryablehttp.Client
}

// NewClient creates a ledger client for the given JSON-RPC URL. Each
// attempt is bounded by timeout; transient failures retry up to three
// times with exponential backoff.
func NewClient(url string, timeout time.Duration) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 250 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.HTTPClient.Timeout = timeout
	rc.Logger = nil // request logging happens at the service layer
	return &Client{url: url, http: rc}
}

// rpcRequest is the rippled JSON-RPC envelope: a method name and a single
// positional params object.
type rpcRequest struct {
	Method string `json:"method"`
	Params []any  `json:"params"`
}

type rpcEnvelope struct {
	Result json.RawMessage `json:"result"`
}

type rpcStatus struct {
	Status       string `json:"status"`
	Error        string `json:"error"`
	ErrorMessage string `json:"error_message"`
}

func (c *Client) call(ctx context.Context, method string, params, out any) error {
	start := time.Now()
	err := c.doCall(ctx, method, params, out)

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.LedgerQueriesTotal.WithLabelValues(method, status).Inc()
	metrics.LedgerQueryDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	return err
}

func (c *Client) doCall(ctx context.Context, method string, params, out any) error {
	body, err := json.Marshal(rpcRequest{Method: method, Params: []any{params}})
	if err != nil {
		return fmt.Errorf("xrpl: marshal %s request: %w", method, err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("xrpl: build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", dexerr.ErrUpstreamQuery, method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %s: read body: %v", dexerr.ErrUpstreamQuery, method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s: http %d", dexerr.ErrUpstreamQuery, method, resp.StatusCode)
	}

	var env rpcEnvelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Result == nil {
		return fmt.Errorf("%w: %s: malformed rpc envelope", dexerr.ErrUpstreamQuery, method)
	}

	var st rpcStatus
	if err := json.Unmarshal(env.Result, &st); err == nil && st.Error != "" {
		if st.Error == "actNotFound" || st.Error == "ammNotFound" || st.Error == "entryNotFound" {
			return fmt.Errorf("%w: %s: %s", dexerr.ErrNotFound, method, st.Error)
		}
		msg := st.ErrorMessage
		if msg == "" {
			msg = st.Error
		}
		return fmt.Errorf("%w: %s: %s", dexerr.ErrUpstreamQuery, method, msg)
	}

	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("%w: %s: decode result: %v", dexerr.ErrUpstreamQuery, method, err)
	}
	return nil
}

// --- Query methods ---

type bookOffersParams struct {
	LedgerIndex string      `json:"ledger_index"`
	TakerGets   asset.Asset `json:"taker_gets"`
	TakerPays   asset.Asset `json:"taker_pays"`
	Limit       int         `json:"limit,omitempty"`
}

func (c *Client) BookOffers(ctx context.Context, takerGets, takerPays asset.Asset, limit int) ([]RawOffer, error) {
	wg, err := takerGets.Wire()
	if err != nil {
		return nil, err
	}
	wp, err := takerPays.Wire()
	if err != nil {
		return nil, err
	}

	var result struct {
		Offers []RawOffer `json:"offers"`
	}
	params := bookOffersParams{
		LedgerIndex: "validated",
		TakerGets:   wg,
		TakerPays:   wp,
		Limit:       limit,
	}
	if err := c.call(ctx, "book_offers", params, &result); err != nil {
		return nil, err
	}
	return result.Offers, nil
}

type ammInfoParams struct {
	LedgerIndex string      `json:"ledger_index"`
	Asset       asset.Asset `json:"asset"`
	Asset2      asset.Asset `json:"asset2"`
}

func (c *Client) AMMInfo(ctx context.Context, a, b asset.Asset) (*RawPoolInfo, error) {
	wa, err := a.Wire()
	if err != nil {
		return nil, err
	}
	wb, err := b.Wire()
	if err != nil {
		return nil, err
	}

	var result struct {
		AMM *RawPoolInfo `json:"amm"`
	}
	params := ammInfoParams{LedgerIndex: "validated", Asset: wa, Asset2: wb}
	if err := c.call(ctx, "amm_info", params, &result); err != nil {
		return nil, err
	}
	if result.AMM == nil {
		return nil, fmt.Errorf("%w: amm_info returned no pool", dexerr.ErrNotFound)
	}
	return result.AMM, nil
}

type accountTxParams struct {
	Account        string          `json:"account"`
	LedgerIndexMin int             `json:"ledger_index_min"`
	LedgerIndexMax int             `json:"ledger_index_max"`
	Forward        bool            `json:"forward"`
	Limit          int             `json:"limit,omitempty"`
	Marker         json.RawMessage `json:"marker,omitempty"`
}

func (c *Client) AccountTx(ctx context.Context, account string, marker json.RawMessage, limit int) (*AccountTxPage, error) {
	var page AccountTxPage
	params := accountTxParams{
		Account:        account,
		LedgerIndexMin: -1,
		LedgerIndexMax: -1,
		Forward:        true,
		Limit:          limit,
		Marker:         marker,
	}
	if err := c.call(ctx, "account_tx", params, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) RipplePathFind(ctx context.Context, req PathFindRequest) ([]PathAlternative, error) {
	var result struct {
		Alternatives []PathAlternative `json:"alternatives"`
	}
	if err := c.call(ctx, "ripple_path_find", req, &result); err != nil {
		return nil, err
	}
	return result.Alternatives, nil
}
