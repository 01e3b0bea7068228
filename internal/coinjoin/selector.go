package coinjoin

import (
	"sort"
	"time"
)

// selectParticipantSet runs the descending-size search from spec §4.E over
// candidates (already filtered to the requested token pair and to
// non-expired deposits), against live reserves (reserveIn, reserveOut).
// minSize is the pool's minimum_pool_size. It returns the largest
// qualifying subset and its payout, or ErrInsufficientBalance if no size in
// [minSize, len(candidates)] qualifies.
func selectParticipantSet(candidates []Deposit, denomValue int64, reserveIn, reserveOut int64, minSize int) ([]Deposit, Payout, error) {
	if len(candidates) == 0 {
		return nil, Payout{}, invalidInput("no candidate deposits to select from")
	}

	sorted := append([]Deposit(nil), candidates...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].MinAmountOut != sorted[j].MinAmountOut {
			return sorted[i].MinAmountOut < sorted[j].MinAmountOut
		}
		return sorted[i].Seq < sorted[j].Seq
	})

	for k := len(sorted); k >= minSize; k-- {
		candidateSet := sorted[:k]

		payout, err := computePayout(k, denomValue, reserveIn, reserveOut, averageMinOut(candidateSet))
		if err != nil {
			continue
		}

		if allQualify(candidateSet, payout) {
			return append([]Deposit(nil), candidateSet...), payout, nil
		}
	}

	return nil, Payout{}, insufficientBalance("no qualifying participant set found")
}

func allQualify(set []Deposit, payout Payout) bool {
	for _, d := range set {
		if payout.Share < d.MinAmountOut {
			return false
		}
		if payout.SlippageBps > int64(d.MaxSlippageBps) {
			return false
		}
	}
	return true
}

// filterCandidates narrows a pool's deposits to those matching the given
// token pair and not yet expired as of now (spec §3, §9 expiry note).
func filterCandidates(deposits []Deposit, tokenIn, tokenOut string, now time.Time) []Deposit {
	out := make([]Deposit, 0, len(deposits))
	for _, d := range deposits {
		if d.TokenIn != tokenIn || d.TokenOut != tokenOut {
			continue
		}
		if d.Expired(now) {
			continue
		}
		out = append(out, d)
	}
	return out
}
