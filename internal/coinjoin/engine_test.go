package coinjoin

import (
	"context"
	"testing"
	"time"

	"github.com/darkstar-labs/batchmix/internal/ledger"
	"github.com/darkstar-labs/batchmix/internal/pair"
)

const (
	testTokenIn  = "USDC"
	testTokenOut = "XLM"
	mixerAddr    = "mixer"
)

func newTestEngine(t *testing.T, reserveIn, reserveOut int64) (*Engine, *ledger.MemoryCustody) {
	t.Helper()
	custody := ledger.NewMemoryCustody()
	registry := pair.NewMemoryRegistry()
	p := pair.NewMemoryPair("pair-1", testTokenIn, testTokenOut, custody, reserveIn, reserveOut)
	registry.Register(testTokenIn, testTokenOut, "pair-1", p)

	for _, sender := range []string{"alice", "bob", "carol", "dave", "erin"} {
		custody.Credit(testTokenIn, sender, 10*valueExtraLarge)
	}

	eng := NewEngine(NewMemoryStore(), registry, registry, custody, mixerAddr)
	if err := eng.Initialize("owner", "factory", "router"); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return eng, custody
}

func swapReq(user string, minOut int64) PrivateSwapRequest {
	return PrivateSwapRequest{
		TokenIn:        testTokenIn,
		TokenOut:       testTokenOut,
		AmountIn:       valueSmall,
		MinAmountOut:   minOut,
		MaxSlippageBps: 500,
		User:           user,
		Recipient:      user + "-recipient",
		Authorized:     true,
	}
}

// TestPrivateSwapSettlesOpportunistically covers S1: three distinct senders
// reaching minimum_pool_size triggers settlement inside the third call.
func TestPrivateSwapSettlesOpportunistically(t *testing.T) {
	eng, custody := newTestEngine(t, 1_000_000_000, 1_000_000_000)
	ctx := context.Background()

	for _, sender := range []string{"alice", "bob", "carol"} {
		if _, err := eng.PrivateSwap(ctx, swapReq(sender, 9_000_000)); err != nil {
			t.Fatalf("PrivateSwap(%s): %v", sender, err)
		}
	}

	pool, err := eng.store.GetPool(DenomSmall)
	if err != nil {
		t.Fatalf("GetPool: %v", err)
	}
	if len(pool.Deposits) != 0 {
		t.Fatalf("pool should be empty after settlement, has %d deposits", len(pool.Deposits))
	}
	for _, sender := range []string{"alice", "bob", "carol"} {
		got := custody.Balance(testTokenOut, sender+"-recipient")
		if got != 9_680_457 {
			t.Fatalf("%s payout = %d, want 9680457", sender, got)
		}
	}
}

// TestPrivateSwapRejectsDuplicateNullifier covers S4.
func TestPrivateSwapRejectsDuplicateNullifier(t *testing.T) {
	eng, _ := newTestEngine(t, 1_000_000_000, 1_000_000_000)
	eng.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	ctx := context.Background()

	req := swapReq("alice", 1)
	if _, err := eng.PrivateSwap(ctx, req); err != nil {
		t.Fatalf("first PrivateSwap: %v", err)
	}
	// Same amount/timestamp/sender derives the same nullifier deterministically.
	if _, err := eng.PrivateSwap(ctx, req); err == nil {
		t.Fatal("expected duplicate-nullifier rejection")
	}

	pool, _ := eng.store.GetPool(DenomSmall)
	if len(pool.Deposits) != 1 {
		t.Fatalf("pool size = %d, want 1 after rejected duplicate", len(pool.Deposits))
	}
}

// TestExecuteCoinjoinMixingRequiresUniqueSenders covers S3: two deposits
// share a sender, so the pool never becomes Ready even at 3 deposits.
func TestExecuteCoinjoinMixingRequiresUniqueSenders(t *testing.T) {
	eng, _ := newTestEngine(t, 1_000_000_000, 1_000_000_000)
	ctx := context.Background()
	// Advance the clock one second per call so alice's two deposits derive
	// distinct nullifiers (amount, unix seconds and sender feed the tag).
	clock := time.Unix(1_700_000_000, 0)
	eng.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	for _, sender := range []string{"alice", "alice", "bob"} {
		req := swapReq(sender, 1)
		req.Recipient = sender + "-r"
		if _, err := eng.PrivateSwap(ctx, req); err != nil {
			t.Fatalf("PrivateSwap(%s): %v", sender, err)
		}
	}

	n, err := eng.ExecuteCoinjoinMixing(ctx, "10", nil)
	if err != nil {
		t.Fatalf("ExecuteCoinjoinMixing: %v", err)
	}
	if n != 0 {
		t.Fatalf("anonymity set = %d, want 0 (unique-sender gate not satisfied)", n)
	}

	pool, _ := eng.store.GetPool(DenomSmall)
	if len(pool.Deposits) != 3 {
		t.Fatalf("pool should be unchanged, has %d deposits", len(pool.Deposits))
	}
}

// TestPrivateSwapDepositDurabilityOnSettlementFailure covers S5: a third
// deposit triggers opportunistic settlement against empty reserves, which
// fails inside the executor, but the deposit itself must still stick and
// the caller must still see success.
func TestPrivateSwapDepositDurabilityOnSettlementFailure(t *testing.T) {
	eng, custody := newTestEngine(t, 0, 0)
	ctx := context.Background()

	var ts int64
	var err error
	for _, sender := range []string{"alice", "bob", "carol"} {
		ts, err = eng.PrivateSwap(ctx, swapReq(sender, 1))
		if err != nil {
			t.Fatalf("PrivateSwap(%s) must not fail even though settlement will: %v", sender, err)
		}
	}
	if ts == 0 {
		t.Fatal("expected a nonzero deposit timestamp")
	}

	pool, _ := eng.store.GetPool(DenomSmall)
	if len(pool.Deposits) != 3 {
		t.Fatalf("pool should retain all 3 deposits after failed settlement, has %d", len(pool.Deposits))
	}
	if got := custody.Balance(testTokenIn, "carol"); got != 10*valueExtraLarge-valueSmall {
		t.Fatalf("carol's token_in balance = %d, want debited by exactly D", got)
	}
}

// TestExecuteCoinjoinMixingRespectsMaxDeposits covers S6: five deposits
// present (inserted directly so opportunistic settlement never intervenes),
// capping execute_coinjoin_mixing at 3 settles exactly the earliest three in
// insertion order and leaves the other two queued.
func TestExecuteCoinjoinMixingRespectsMaxDeposits(t *testing.T) {
	eng, custody := newTestEngine(t, 1_000_000_000, 1_000_000_000)
	ctx := context.Background()

	senders := []string{"alice", "bob", "carol", "dave", "erin"}
	pool, err := eng.store.GetPool(DenomSmall)
	if err != nil {
		t.Fatalf("GetPool: %v", err)
	}
	now := time.Unix(1_700_000_000, 0)
	for i, sender := range senders {
		d := mkDeposit(uint64(i), 1, 500, sender)
		d.Nullifier = [32]byte{byte(i + 1)}
		pool.Deposits = append(pool.Deposits, d)
	}
	if err := eng.store.UpdatePool(DenomSmall, pool); err != nil {
		t.Fatalf("UpdatePool: %v", err)
	}
	// The deposits bypassed PrivateSwap's transfer-in, so give the mixer the
	// token_in it would hold for them.
	custody.Credit(testTokenIn, mixerAddr, int64(len(senders))*valueSmall)
	eng.now = func() time.Time { return now }

	maxDeposits := 3
	n, err := eng.ExecuteCoinjoinMixing(ctx, "10", &maxDeposits)
	if err != nil {
		t.Fatalf("ExecuteCoinjoinMixing: %v", err)
	}
	if n != 3 {
		t.Fatalf("anonymity set = %d, want 3", n)
	}

	remaining, _ := eng.store.GetPool(DenomSmall)
	if len(remaining.Deposits) != 2 {
		t.Fatalf("remaining deposits = %d, want 2", len(remaining.Deposits))
	}
	for _, sender := range []string{"dave", "erin"} {
		found := false
		for _, d := range remaining.Deposits {
			if d.SenderAddress == sender {
				found = true
			}
		}
		if !found {
			t.Fatalf("expected %s's deposit to remain queued", sender)
		}
	}
	for _, sender := range []string{"alice", "bob", "carol"} {
		if got := custody.Balance(testTokenOut, sender+"-recipient"); got <= 0 {
			t.Fatalf("%s should have been settled and credited, got %d", sender, got)
		}
	}
}

func TestGetPoolStatsWaitTime(t *testing.T) {
	eng, _ := newTestEngine(t, 1_000_000_000, 1_000_000_000)
	stats, err := eng.GetPoolStats("10")
	if err != nil {
		t.Fatalf("GetPoolStats: %v", err)
	}
	if stats.EstimatedWaitTime != defaultMinimumPoolSize*5 {
		t.Fatalf("EstimatedWaitTime = %d, want %d", stats.EstimatedWaitTime, defaultMinimumPoolSize*5)
	}
}

func TestInitializeRejectsSecondCall(t *testing.T) {
	eng, _ := newTestEngine(t, 1_000_000_000, 1_000_000_000)
	if err := eng.Initialize("owner", "factory", "router"); err == nil {
		t.Fatal("expected AlreadyInitialized on second Initialize call")
	}
}

func TestPrivateSwapRequiresInitialization(t *testing.T) {
	custody := ledger.NewMemoryCustody()
	registry := pair.NewMemoryRegistry()
	eng := NewEngine(NewMemoryStore(), registry, registry, custody, mixerAddr)
	if _, err := eng.PrivateSwap(context.Background(), swapReq("alice", 1)); err == nil {
		t.Fatal("expected NotInitialized error")
	}
}
