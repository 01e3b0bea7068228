package coinjoin

import "testing"

func TestFromAmountRejectsUnsupportedValue(t *testing.T) {
	if _, err := FromAmount(12_345); err == nil {
		t.Fatal("expected error for an amount matching no denomination")
	}
}

func TestFromAmountExtraLargeUsesAdmissionValue(t *testing.T) {
	d, err := FromAmount(2_000_000_000)
	if err != nil {
		t.Fatalf("FromAmount: %v", err)
	}
	if d != DenomExtraLarge {
		t.Fatalf("got %v, want DenomExtraLarge", d)
	}
	if d.Value() != 2_000_000_000 {
		t.Fatalf("Value() = %d, want 2000000000", d.Value())
	}
	// 10_000_000_000 is Denomination::value()'s figure in the source but
	// from_amount never accepted it there either; it must stay unsupported.
	if Supported(10_000_000_000) {
		t.Fatal("10_000_000_000 must not be an admissible deposit amount")
	}
}

func TestFromSymbolRoundTrip(t *testing.T) {
	for _, d := range AllDenominations() {
		got, err := FromSymbol(d.Symbol())
		if err != nil {
			t.Fatalf("FromSymbol(%s): %v", d.Symbol(), err)
		}
		if got != d {
			t.Fatalf("FromSymbol(%s) = %v, want %v", d.Symbol(), got, d)
		}
	}
}
