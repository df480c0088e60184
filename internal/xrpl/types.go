package xrpl

import "encoding/json"

// RawOffer is one resting offer as returned by book_offers. TakerGets and
// TakerPays are kept raw because the ledger encodes them two ways (drops
// string vs issued-amount object); internal/asset decodes them.
type RawOffer struct {
	Account   string          `json:"Account"`
	Sequence  uint32          `json:"Sequence"`
	TakerGets json.RawMessage `json:"TakerGets"`
	TakerPays json.RawMessage `json:"TakerPays"`
}

// RawPoolInfo is the amm object of an amm_info response.
type RawPoolInfo struct {
	Account string          `json:"account"`
	Amount  json.RawMessage `json:"amount"`
	Amount2 json.RawMessage `json:"amount2"`
	LPToken struct {
		Currency string `json:"currency"`
		Issuer   string `json:"issuer"`
		Value    string `json:"value"`
	} `json:"lp_token"`
	// TradingFee is in units of 1/100000: 1000 means a 1% fee.
	TradingFee int64 `json:"trading_fee"`
}

// RawTx is one account_tx record. Date is seconds since the ledger epoch
// (2000-01-01T00:00:00Z); nil when the record carries no usable timestamp.
type RawTx struct {
	Tx struct {
		TransactionType string          `json:"TransactionType"`
		Account         string          `json:"Account"`
		Date            *int64          `json:"date"`
		Amount          json.RawMessage `json:"Amount"`
	} `json:"tx"`
	Validated bool `json:"validated"`
}

// AccountTxPage is one page of an account's transaction history. Marker is
// an opaque continuation cursor; nil means no further pages.
type AccountTxPage struct {
	Transactions []RawTx         `json:"transactions"`
	Marker       json.RawMessage `json:"marker"`
}

// PathAlternative is one candidate payment route from ripple_path_find.
// PathsComputed is kept raw and passed through to the transaction proposal
// untouched.
type PathAlternative struct {
	PathsComputed json.RawMessage `json:"paths_computed"`
	SourceAmount  json.RawMessage `json:"source_amount"`
}

// PathFindRequest describes a ripple_path_find query.
type PathFindRequest struct {
	SourceAccount      string `json:"source_account"`
	DestinationAccount string `json:"destination_account"`
	DestinationAmount  any    `json:"destination_amount"`
	SourceCurrencies   []any  `json:"source_currencies,omitempty"`
}
