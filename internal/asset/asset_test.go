package asset

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/xrplquantum/dex-engine/internal/dexerr"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// --- Currency codec ---

func TestToWireCode_Native(t *testing.T) {
	if got := ToWireCode("XRP"); got != "XRP" {
		t.Errorf("expected XRP passthrough, got %s", got)
	}
}

func TestToWireCode_ShortSymbol(t *testing.T) {
	if got := ToWireCode("usd"); got != "USD" {
		t.Errorf("expected uppercased short code, got %s", got)
	}
}

func TestToWireCode_AlreadyHex(t *testing.T) {
	in := strings.Repeat("ab", 20)
	want := strings.ToUpper(in)
	if got := ToWireCode(in); got != want {
		t.Errorf("expected hex passthrough uppercased, got %s", got)
	}
}

func TestToWireCode_LongSymbolPadded(t *testing.T) {
	got := ToWireCode("XQNT")
	if len(got) != 40 {
		t.Fatalf("expected 40 hex chars, got %d (%s)", len(got), got)
	}
	if !strings.HasPrefix(got, "58514E54") { // "XQNT" in ASCII hex
		t.Errorf("unexpected encoding: %s", got)
	}
	if got[8:] != strings.Repeat("0", 32) {
		t.Errorf("expected zero padding after symbol bytes, got %s", got[8:])
	}
}

func TestRoundTrip_SymbolsUpTo20Bytes(t *testing.T) {
	symbols := []string{
		"XQNT",
		"MyLongProjectToken", // 18 chars, from a real listing
		strings.Repeat("A", 20),
	}
	for _, sym := range symbols {
		wire := ToWireCode(sym)
		if len(wire) != 40 {
			t.Fatalf("%s: wire length %d", sym, len(wire))
		}
		if got := FromWireCode(wire); got != sym {
			t.Errorf("round trip failed: %s -> %s -> %s", sym, wire, got)
		}
	}
}

func TestToWireCode_TruncatesOver20Bytes(t *testing.T) {
	long := strings.Repeat("Z", 25)
	wire := ToWireCode(long)
	if len(wire) != 40 {
		t.Fatalf("wire length %d", len(wire))
	}
	if got := FromWireCode(wire); got != strings.Repeat("Z", 20) {
		t.Errorf("expected 20-byte truncation, got %q", got)
	}
}

func TestFromWireCode_NonHexPassthrough(t *testing.T) {
	if got := FromWireCode("USD"); got != "USD" {
		t.Errorf("expected passthrough for non-hex input, got %s", got)
	}
}

func TestFromWireCode_AllZeroBytes(t *testing.T) {
	in := strings.Repeat("00", 20)
	if got := FromWireCode(in); got != in {
		t.Errorf("expected original hex when nothing decodes, got %s", got)
	}
}

func TestAssetWire_MissingIssuer(t *testing.T) {
	_, err := Issued("XQNT", "").Wire()
	if err == nil || !strings.Contains(err.Error(), dexerr.ErrMissingIssuer.Error()) {
		t.Errorf("expected missing issuer error, got %v", err)
	}
}

func TestAssetWire_NativeHasNoIssuer(t *testing.T) {
	w, err := Native().Wire()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Currency != "XRP" || w.Issuer != "" {
		t.Errorf("unexpected wire asset: %+v", w)
	}
}

// --- Amount normalizer ---

func TestToWire_NativeFloorsToDrops(t *testing.T) {
	tests := []struct {
		display float64
		drops   string
	}{
		{1, "1000000"},
		{0.5, "500000"},
		{1.2345678, "1234567"}, // floored, never rounded
		{0, "0"},
	}
	for _, tt := range tests {
		got, err := ToWire(Native(), d(tt.display))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != tt.drops {
			t.Errorf("ToWire(%v) = %v, want %s", tt.display, got, tt.drops)
		}
	}
}

func TestToWire_IssuedKeepsDecimalString(t *testing.T) {
	got, err := ToWire(Issued("XQNT", "rIssuer"), d(12.34))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ia, ok := got.(IssuedAmount)
	if !ok {
		t.Fatalf("expected IssuedAmount, got %T", got)
	}
	if ia.Value != "12.34" || ia.Issuer != "rIssuer" || len(ia.Currency) != 40 {
		t.Errorf("unexpected wire amount: %+v", ia)
	}
}

func TestToWire_IssuedWithoutIssuer(t *testing.T) {
	if _, err := ToWire(Issued("XQNT", ""), d(1)); err == nil {
		t.Error("expected error for issued amount without issuer")
	}
}

func TestFromWire_DropsString(t *testing.T) {
	got, err := FromWire(json.RawMessage(`"5000000"`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(d(5)) {
		t.Errorf("expected 5, got %s", got)
	}
}

func TestFromWire_IssuedObject(t *testing.T) {
	raw := json.RawMessage(`{"currency":"ABC","issuer":"rX","value":"10"}`)
	got, err := FromWire(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(d(10)) {
		t.Errorf("expected 10, got %s", got)
	}
}

func TestFromWire_Unparseable(t *testing.T) {
	cases := []string{`"not-a-number"`, `{"value":"xyz"}`, `null`, `[1,2]`}
	for _, c := range cases {
		if _, err := FromWire(json.RawMessage(c)); err == nil {
			t.Errorf("expected error for %s", c)
		}
	}
}

// Native round trip: floor(fromWire(drops) * 1e6) == drops for all drops >= 0.
func TestAmountRoundTrip_Native(t *testing.T) {
	for _, drops := range []string{"0", "1", "999999", "1000000", "123456789012345"} {
		display, err := FromWire(json.RawMessage(`"` + drops + `"`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		wire, err := ToWire(Native(), display)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if wire != drops {
			t.Errorf("round trip failed: %s -> %s -> %v", drops, display, wire)
		}
	}
}

// --- Display formatting ---

func TestFormatDisplay(t *testing.T) {
	tests := []struct {
		in   decimal.Decimal
		want string
	}{
		{d(1.5), "1.50000000"},
		{d(0.00000001), "0.00000001"},
		{decimal.New(2, 9), "2.0000e+09"},
		{decimal.New(3, -9), "3.0000e-09"},
		{decimal.Zero, "0.00000000"},
	}
	for _, tt := range tests {
		if got := FormatDisplay(tt.in); got != tt.want {
			t.Errorf("FormatDisplay(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
