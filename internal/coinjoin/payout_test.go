package coinjoin

import "testing"

// TestComputePayoutScenarioS1 uses scenario S1's inputs: denomination
// Small (10_000_000), 3 participants, reserves (1e9, 1e9). The expected
// values follow the constant-product formula exactly:
// out = 3e7*997*1e9 / (1e9*1000 + 3e7*997) = 29_041_372 (truncated), and
// share = 29_041_372 / 3 = 9_680_457.
func TestComputePayoutScenarioS1(t *testing.T) {
	payout, err := computePayout(3, valueSmall, 1_000_000_000, 1_000_000_000, 9_500_000)
	if err != nil {
		t.Fatalf("computePayout returned error: %v", err)
	}
	if payout.TotalOutput != 29_041_372 {
		t.Fatalf("TotalOutput = %d, want 29041372", payout.TotalOutput)
	}
	if payout.Share != 9_680_457 {
		t.Fatalf("Share = %d, want 9680457", payout.Share)
	}
}

func TestComputePayoutRejectsZeroReserves(t *testing.T) {
	if _, err := computePayout(3, valueSmall, 0, 1_000_000_000, 0); err == nil {
		t.Fatal("expected error for zero reserve")
	}
}

func TestComputePayoutRejectsNonPositiveParticipants(t *testing.T) {
	if _, err := computePayout(0, valueSmall, 1_000_000_000, 1_000_000_000, 0); err == nil {
		t.Fatal("expected error for zero participant count")
	}
}

func TestComputePayoutLargeReservesStayWithinRange(t *testing.T) {
	// Reserves near the top of the representable int64 range still produce
	// a valid, narrower-than-reserve output: the wide intermediate products
	// here exceed uint64 even though every input and the final result fit.
	const hugeReserve = int64(1) << 62
	payout, err := computePayout(10, valueExtraLarge, hugeReserve, hugeReserve, 0)
	if err != nil {
		t.Fatalf("computePayout returned error: %v", err)
	}
	if payout.TotalOutput <= 0 || payout.TotalOutput >= hugeReserve {
		t.Fatalf("TotalOutput = %d, want in (0, %d)", payout.TotalOutput, hugeReserve)
	}
}

func TestRealizedSlippageBps(t *testing.T) {
	if got := realizedSlippageBps(0, 100); got != 0 {
		t.Fatalf("realizedSlippageBps with zero avgMin = %d, want 0", got)
	}
	if got := realizedSlippageBps(10_000, 10_000); got != 0 {
		t.Fatalf("no deficit should yield 0 bps, got %d", got)
	}
	if got := realizedSlippageBps(10_000, 9_500); got != 500 {
		t.Fatalf("5%% deficit should yield 500 bps, got %d", got)
	}
}
