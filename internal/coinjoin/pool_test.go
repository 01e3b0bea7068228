package coinjoin

import "testing"

func TestPoolReadyRequiresUniqueSenders(t *testing.T) {
	p := NewPool(DenomSmall)
	p.Deposits = []Deposit{
		mkDeposit(0, 1, 1, "alice"),
		mkDeposit(1, 1, 1, "alice"),
		mkDeposit(2, 1, 1, "bob"),
	}
	if p.Ready() {
		t.Fatal("pool with only 2 unique senders should not be Ready at minimum_pool_size=3")
	}
	p.Deposits = append(p.Deposits, mkDeposit(3, 1, 1, "carol"))
	if !p.Ready() {
		t.Fatal("pool with 3 unique senders should be Ready")
	}
}

func TestRemoveByNullifierPreservesOrder(t *testing.T) {
	a := mkDeposit(0, 1, 1, "alice")
	b := mkDeposit(1, 1, 1, "bob")
	c := mkDeposit(2, 1, 1, "carol")

	remove := map[[32]byte]bool{b.Nullifier: true}
	got := removeByNullifier([]Deposit{a, b, c}, remove)

	if len(got) != 2 || got[0].SenderAddress != "alice" || got[1].SenderAddress != "carol" {
		t.Fatalf("removeByNullifier = %+v, want [alice carol] in order", got)
	}
}

func TestFeeForIsProportionalToDenomination(t *testing.T) {
	if got := feeFor(DenomSmall, 10); got != valueSmall*10/10_000 {
		t.Fatalf("feeFor = %d, want %d", got, valueSmall*10/10_000)
	}
}
