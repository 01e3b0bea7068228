package coinjoin

import (
	"context"
)

// settleDenomination runs the full settlement sequence from spec §4.F
// against denom's pool, under that denomination's exclusive mutex. It is
// shared by PrivateSwap's opportunistic call and ExecuteCoinjoinMixing's
// explicit one. maxDeposits, if non-nil, caps how many of the oldest
// matching candidates the selector is allowed to consider.
func (e *Engine) settleDenomination(ctx context.Context, denom Denomination, tokenIn, tokenOut string, maxDeposits *int) (SettlementResult, error) {
	mu := e.settleMu[denom]
	mu.Lock()
	defer mu.Unlock()

	pool, err := e.store.GetPool(denom)
	if err != nil {
		return SettlementResult{}, err
	}

	now := e.now()
	candidates := filterCandidates(pool.Deposits, tokenIn, tokenOut, now)
	limit := pool.MaximumPoolSize
	if maxDeposits != nil {
		limit = *maxDeposits
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	if len(candidates) < pool.MinimumPoolSize {
		return SettlementResult{}, insufficientBalance("not enough matching deposits to settle")
	}

	pairAddr, err := e.registry.GetPair(ctx, tokenIn, tokenOut)
	if err != nil {
		return SettlementResult{}, pairNotFound(err.Error())
	}
	liquidity, err := e.resolver.Resolve(ctx, pairAddr)
	if err != nil {
		return SettlementResult{}, pairNotFound(err.Error())
	}

	reserveIn, reserveOut, err := readOrderedReserves(ctx, liquidity, tokenIn)
	if err != nil {
		return SettlementResult{}, err
	}

	selected, payout, err := selectParticipantSet(candidates, denom.Value(), reserveIn, reserveOut, pool.MinimumPoolSize)
	if err != nil {
		return SettlementResult{}, err
	}

	// Re-read reserves inside the critical section and reverify the chosen
	// set still qualifies against them before moving any funds (spec §5:
	// reserves may have shifted between the selection read above and now).
	reserveIn, reserveOut, err = readOrderedReserves(ctx, liquidity, tokenIn)
	if err != nil {
		return SettlementResult{}, err
	}
	payout, err = computePayout(len(selected), denom.Value(), reserveIn, reserveOut, averageMinOut(selected))
	if err != nil {
		return SettlementResult{}, err
	}
	if !allQualify(selected, payout) {
		return SettlementResult{}, insufficientBalance("selected set no longer qualifies against current reserves")
	}

	aggregatedIn := int64(len(selected)) * denom.Value()
	if err := e.custody.Transfer(ctx, tokenIn, e.mixerAddress, pairAddr, aggregatedIn); err != nil {
		return SettlementResult{}, invalidInput("transfer of aggregated input to pair failed: " + err.Error())
	}

	amount0Out, amount1Out := swapOutputSlots(liquidity, tokenIn, payout.TotalOutput)
	if err := liquidity.Swap(ctx, amount0Out, amount1Out, e.mixerAddress); err != nil {
		return SettlementResult{}, invalidInput("pair swap failed: " + err.Error())
	}

	for _, d := range selected {
		if err := e.custody.Transfer(ctx, tokenOut, e.mixerAddress, d.RecipientAddress, payout.Share); err != nil {
			return SettlementResult{}, invalidInput("payout transfer failed: " + err.Error())
		}
	}

	settledNullifiers := make(map[[32]byte]bool, len(selected))
	for _, d := range selected {
		settledNullifiers[d.Nullifier] = true
	}
	pool.Deposits = removeByNullifier(pool.Deposits, settledNullifiers)
	if err := e.store.UpdatePool(denom, pool); err != nil {
		return SettlementResult{}, err
	}

	result := SettlementResult{
		Denomination:     denom,
		AnonymitySetSize: len(selected),
		ShareAmount:      payout.Share,
		SlippageBps:      payout.SlippageBps,
		TotalOutput:      payout.TotalOutput,
	}
	e.events.Settled(result)

	return result, nil
}

// readOrderedReserves returns (reserveIn, reserveOut) for tokenIn's side of
// p, regardless of which slot p.Token0()/Token1() assigns it to.
func readOrderedReserves(ctx context.Context, p interface {
	Token0() string
	Token1() string
	GetReserves(ctx context.Context) (int64, int64, error)
}, tokenIn string) (int64, int64, error) {
	reserve0, reserve1, err := p.GetReserves(ctx)
	if err != nil {
		return 0, 0, invalidInput("failed to read pair reserves: " + err.Error())
	}
	if p.Token0() == tokenIn {
		return reserve0, reserve1, nil
	}
	return reserve1, reserve0, nil
}

// swapOutputSlots places totalOut in whichever of (amount0Out, amount1Out)
// corresponds to the output token, leaving the other at zero (spec §6).
func swapOutputSlots(p interface {
	Token0() string
	Token1() string
}, tokenIn string, totalOut int64) (int64, int64) {
	if p.Token0() == tokenIn {
		return 0, totalOut
	}
	return totalOut, 0
}
