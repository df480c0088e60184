package asset

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/xrplquantum/dex-engine/internal/dexerr"
)

// DropsPerUnit is the native asset's sub-unit scale: 1 XRP = 10^6 drops.
var DropsPerUnit = decimal.New(1, 6)

// IssuedAmount is the wire form of an issued-asset amount.
type IssuedAmount struct {
	Currency string `json:"currency"`
	Issuer   string `json:"issuer"`
	Value    string `json:"value"`
}

// ToWire encodes a display-unit value for the given asset into its wire
// form: a drops string for the native asset (floored, never rounded up),
// or an {currency, issuer, value} object for issued assets.
func ToWire(a Asset, value decimal.Decimal) (any, error) {
	if a.IsNative() {
		return value.Mul(DropsPerUnit).Floor().String(), nil
	}
	if a.Issuer == "" {
		return nil, fmt.Errorf("%w: %s", dexerr.ErrMissingIssuer, a.Currency)
	}
	return IssuedAmount{
		Currency: ToWireCode(a.Currency),
		Issuer:   a.Issuer,
		Value:    value.String(),
	}, nil
}

// FromWire decodes a raw ledger amount — either a bare drops string or an
// issued-amount object — into display units. Unlike the ledger's own
// tolerance for malformed historical data, unparseable input is reported
// as an error so callers can distinguish "zero" from "garbage" and decide
// whether to drop the record or abort.
func FromWire(raw json.RawMessage) (decimal.Decimal, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return decimal.Zero, fmt.Errorf("amount: empty value")
	}

	var drops string
	if err := json.Unmarshal(raw, &drops); err == nil {
		d, err := decimal.NewFromString(drops)
		if err != nil {
			return decimal.Zero, fmt.Errorf("amount: bad drops %q: %w", drops, err)
		}
		return d.Div(DropsPerUnit), nil
	}

	var issued IssuedAmount
	if err := json.Unmarshal(raw, &issued); err != nil {
		return decimal.Zero, fmt.Errorf("amount: unrecognized encoding: %w", err)
	}
	d, err := decimal.NewFromString(issued.Value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("amount: bad issued value %q: %w", issued.Value, err)
	}
	return d, nil
}

// FormatDisplay renders a value for presentation: scientific notation with
// 4 fractional digits for magnitudes >= 1e9 or < 1e-8, fixed 8 decimal
// places otherwise. Presentation only — never feed the result back into
// arithmetic.
func FormatDisplay(v decimal.Decimal) string {
	f, _ := v.Float64()
	abs := math.Abs(f)
	if abs >= 1e9 || (abs > 0 && abs < 1e-8) {
		return strconv.FormatFloat(f, 'e', 4, 64)
	}
	return v.StringFixed(8)
}
