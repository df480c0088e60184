// Package asset normalizes XRPL asset identifiers and amounts.
//
// The ledger encodes currencies two ways: 3-character ASCII codes ("XRP",
// "USD") and 160-bit hex codes for longer symbols. Amounts are likewise
// split: the native asset travels as a bare base-10 drops string (1 XRP =
// 1,000,000 drops) while issued assets travel as {currency, issuer, value}
// objects with decimal string values.
//
// All amount values use shopspring/decimal — never float64 for money.
package asset

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/xrplquantum/dex-engine/internal/dexerr"
)

// NativeCurrency is the ledger's intrinsic value unit. It never carries an
// issuer.
const NativeCurrency = "XRP"

// currencyBytes is the fixed byte width of a hex-encoded currency code.
const currencyBytes = 20

var hexCodeRe = regexp.MustCompile(`^[0-9A-Fa-f]{40}$`)

// Asset identifies one XRPL asset: the native asset, or an issued token
// tracked against a specific issuing account.
type Asset struct {
	Currency string `json:"currency"`
	Issuer   string `json:"issuer,omitempty"`
}

// Native returns the native asset.
func Native() Asset {
	return Asset{Currency: NativeCurrency}
}

// Issued returns an issued asset with the given symbol and issuer. The
// symbol is converted to wire form lazily, when the asset is serialized.
func Issued(symbol, issuer string) Asset {
	return Asset{Currency: symbol, Issuer: issuer}
}

// IsNative reports whether a denotes the native asset.
func (a Asset) IsNative() bool {
	return strings.ToUpper(a.Currency) == NativeCurrency
}

// Wire returns the asset in ledger query form: the native sentinel, or
// {currency, issuer} with the currency in wire encoding. Fails when an
// issued asset has no issuer.
func (a Asset) Wire() (Asset, error) {
	if a.IsNative() {
		return Native(), nil
	}
	if a.Issuer == "" {
		return Asset{}, fmt.Errorf("%w: %s", dexerr.ErrMissingIssuer, a.Currency)
	}
	return Asset{Currency: ToWireCode(a.Currency), Issuer: a.Issuer}, nil
}

// ToWireCode converts a human currency symbol to its on-ledger form.
//
// Symbols of up to 3 characters pass through uppercased (the ledger's
// short-code convention), as do strings that are already 40 hex digits.
// Anything else is taken as ASCII, right-padded with zero bytes to 20
// bytes, and hex-encoded uppercase. Inputs longer than 20 bytes are
// silently truncated — callers that care must validate length first.
func ToWireCode(symbol string) string {
	if strings.ToUpper(symbol) == NativeCurrency {
		return NativeCurrency
	}
	if len(symbol) <= 3 {
		return strings.ToUpper(symbol)
	}
	if hexCodeRe.MatchString(symbol) {
		return strings.ToUpper(symbol)
	}

	buf := make([]byte, currencyBytes)
	copy(buf, symbol)
	return strings.ToUpper(hex.EncodeToString(buf))
}

// FromWireCode decodes a hex currency code back to a human symbol on a
// best-effort basis: bytes are decoded from the front while they are
// printable ASCII, stopping at the first zero or non-printable byte. If
// nothing decodes, the input is returned unchanged. This is not a true
// inverse of ToWireCode for codes with embedded non-printable bytes.
func FromWireCode(code string) string {
	raw, err := hex.DecodeString(code)
	if err != nil {
		return code
	}

	var b strings.Builder
	for _, c := range raw {
		if c == 0 || c < 32 || c > 126 {
			break
		}
		b.WriteByte(c)
	}
	if b.Len() == 0 {
		return code
	}
	return b.String()
}
