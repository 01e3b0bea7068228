package coinjoin

import (
	"testing"
	"time"
)

func TestSelectParticipantSetShrinksOnFourthDepositFloor(t *testing.T) {
	deposits := []Deposit{
		mkDeposit(0, 9_000_000, 500, "alice"),
		mkDeposit(1, 9_000_000, 500, "bob"),
		mkDeposit(2, 9_000_000, 500, "carol"),
		mkDeposit(3, 9_700_000, 500, "dave"),
	}

	selected, payout, err := selectParticipantSet(deposits, valueSmall, 1_000_000_000, 1_000_000_000, 3)
	if err != nil {
		t.Fatalf("selectParticipantSet returned error: %v", err)
	}
	if len(selected) != 3 {
		t.Fatalf("len(selected) = %d, want 3 (dave's floor should exclude k=4)", len(selected))
	}
	if payout.Share < 9_000_000 {
		t.Fatalf("payout.Share = %d, below every selected deposit's floor", payout.Share)
	}
	for _, d := range selected {
		if d.SenderAddress == "dave" {
			t.Fatal("dave should have been excluded once k=4 failed his floor")
		}
	}
}

func TestSelectParticipantSetInsufficientBalance(t *testing.T) {
	deposits := []Deposit{
		mkDeposit(0, 50_000_000, 10, "alice"),
		mkDeposit(1, 50_000_000, 10, "bob"),
		mkDeposit(2, 50_000_000, 10, "carol"),
	}
	if _, _, err := selectParticipantSet(deposits, valueSmall, 1_000_000_000, 1_000_000_000, 3); err == nil {
		t.Fatal("expected insufficient-balance error when no size qualifies")
	}
}

func TestFilterCandidatesExcludesExpiredAndWrongPair(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	fresh := mkDeposit(0, 1, 1, "alice")
	expired := mkDeposit(1, 1, 1, "bob")
	expired.ExpiryTimestamp = now.Add(-time.Minute)
	wrongPair := mkDeposit(2, 1, 1, "carol")
	wrongPair.TokenOut = "BTC"

	out := filterCandidates([]Deposit{fresh, expired, wrongPair}, "USDC", "XLM", now)
	if len(out) != 1 || out[0].SenderAddress != "alice" {
		t.Fatalf("filterCandidates = %+v, want only alice's deposit", out)
	}
}
