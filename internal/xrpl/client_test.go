package xrpl

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/xrplquantum/dex-engine/internal/asset"
	"github.com/xrplquantum/dex-engine/internal/dexerr"
)

// rpcServer fakes one rippled JSON-RPC endpoint. It records the last
// request envelope and answers with a fixed result payload.
func rpcServer(t *testing.T, result string, lastReq *rpcRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if lastReq != nil {
			if err := json.NewDecoder(r.Body).Decode(lastReq); err != nil {
				t.Errorf("decode rpc request: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"result":` + result + `}`))
	}))
}

func TestBookOffers(t *testing.T) {
	var req rpcRequest
	srv := rpcServer(t, `{"status":"success","offers":[
		{"Account":"rOwner","Sequence":42,"TakerGets":"5000000","TakerPays":{"currency":"ABC","issuer":"rI","value":"10"}}
	]}`, &req)
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	offers, err := c.BookOffers(context.Background(),
		asset.Native(), asset.Issued("ABC", "rI"), 50)
	if err != nil {
		t.Fatalf("BookOffers: %v", err)
	}
	if len(offers) != 1 || offers[0].Account != "rOwner" || offers[0].Sequence != 42 {
		t.Fatalf("offers = %+v", offers)
	}

	if req.Method != "book_offers" {
		t.Errorf("method = %q", req.Method)
	}
	if len(req.Params) != 1 {
		t.Fatalf("params = %d entries, want 1", len(req.Params))
	}
	params := req.Params[0].(map[string]any)
	if params["ledger_index"] != "validated" {
		t.Errorf("ledger_index = %v", params["ledger_index"])
	}
}

func TestBookOffersRequiresIssuer(t *testing.T) {
	c := NewClient("http://unused.invalid", time.Second)
	_, err := c.BookOffers(context.Background(),
		asset.Issued("ABC", ""), asset.Native(), 1)
	if !errors.Is(err, dexerr.ErrMissingIssuer) {
		t.Fatalf("err = %v, want ErrMissingIssuer", err)
	}
}

func TestAMMInfoNotFound(t *testing.T) {
	srv := rpcServer(t, `{"status":"error","error":"ammNotFound","error_message":"The requested AMM does not exist."}`, nil)
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	_, err := c.AMMInfo(context.Background(), asset.Native(), asset.Issued("ABC", "rI"))
	if !errors.Is(err, dexerr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCallMapsRPCErrorToUpstream(t *testing.T) {
	srv := rpcServer(t, `{"status":"error","error":"invalidParams","error_message":"Missing field."}`, nil)
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	_, err := c.BookOffers(context.Background(), asset.Native(), asset.Issued("ABC", "rI"), 1)
	if !errors.Is(err, dexerr.ErrUpstreamQuery) {
		t.Fatalf("err = %v, want ErrUpstreamQuery", err)
	}
}

func TestCallRejectsMalformedEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"unexpected":true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	_, err := c.BookOffers(context.Background(), asset.Native(), asset.Issued("ABC", "rI"), 1)
	if !errors.Is(err, dexerr.ErrUpstreamQuery) {
		t.Fatalf("err = %v, want ErrUpstreamQuery", err)
	}
}

func TestAccountTxPagination(t *testing.T) {
	var req rpcRequest
	srv := rpcServer(t, `{"status":"success","transactions":[
		{"tx":{"TransactionType":"AMMDeposit","Account":"rA","date":1000,"Amount":"100000000"},"validated":true}
	],"marker":{"ledger":7,"seq":3}}`, &req)
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	page, err := c.AccountTx(context.Background(), "rPool", json.RawMessage(`{"ledger":5,"seq":1}`), 200)
	if err != nil {
		t.Fatalf("AccountTx: %v", err)
	}
	if len(page.Transactions) != 1 {
		t.Fatalf("transactions = %d, want 1", len(page.Transactions))
	}
	if len(page.Marker) == 0 {
		t.Error("marker not carried through")
	}

	params := req.Params[0].(map[string]any)
	if params["forward"] != true {
		t.Errorf("forward = %v, want true", params["forward"])
	}
	if params["ledger_index_min"] != float64(-1) || params["ledger_index_max"] != float64(-1) {
		t.Errorf("ledger index range = %v..%v, want -1..-1",
			params["ledger_index_min"], params["ledger_index_max"])
	}
	if _, ok := params["marker"]; !ok {
		t.Error("marker not forwarded in request")
	}
}

func TestRipplePathFind(t *testing.T) {
	var req rpcRequest
	srv := rpcServer(t, `{"status":"success","alternatives":[
		{"paths_computed":[[{"currency":"ABC","issuer":"rI"}]],"source_amount":"1000000"}
	]}`, &req)
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	alts, err := c.RipplePathFind(context.Background(), PathFindRequest{
		SourceAccount:      "rAlice",
		DestinationAccount: "rBob",
		DestinationAmount:  map[string]string{"currency": "ABC", "issuer": "rI", "value": "10"},
	})
	if err != nil {
		t.Fatalf("RipplePathFind: %v", err)
	}
	if len(alts) != 1 || len(alts[0].PathsComputed) == 0 {
		t.Fatalf("alternatives = %+v", alts)
	}
	if req.Method != "ripple_path_find" {
		t.Errorf("method = %q", req.Method)
	}
}
