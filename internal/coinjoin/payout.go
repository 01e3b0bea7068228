package coinjoin

import "github.com/holiman/uint256"

const (
	swapFeeNumerator   = 997
	swapFeeDenominator = 1000
	bpsDenominator     = 10_000
)

// Payout is the result of evaluating the constant-product formula for an
// aggregated input against one candidate participant set (spec §4.D).
type Payout struct {
	TotalOutput    int64
	Share          int64
	SlippageBps    int64
	ParticipantCnt int
}

// computePayout applies the constant-product output formula to an
// aggregated input of size participantCount*denomValue against reserves
// (reserveIn, reserveOut), then derives the equal per-participant share and
// realized slippage against avgMinOut. All arithmetic runs in 256-bit wide
// integers; overflow in any product is rejected rather than wrapped (spec
// §4.D contract).
func computePayout(participantCount int, denomValue int64, reserveIn, reserveOut int64, avgMinOut int64) (Payout, error) {
	if participantCount <= 0 {
		return Payout{}, invalidInput("participant count must be positive")
	}
	if reserveIn <= 0 || reserveOut <= 0 {
		return Payout{}, invalidInput("pool reserves must be positive")
	}

	aggregatedIn, overflow := new(uint256.Int).MulOverflow(
		uint256.NewInt(uint64(participantCount)), uint256.NewInt(uint64(denomValue)))
	if overflow {
		return Payout{}, invalidInput("aggregated input amount overflows")
	}

	aWithFee, overflow := new(uint256.Int).MulOverflow(aggregatedIn, uint256.NewInt(swapFeeNumerator))
	if overflow {
		return Payout{}, invalidInput("fee-adjusted input overflows")
	}

	numerator, overflow := new(uint256.Int).MulOverflow(aWithFee, uint256.NewInt(uint64(reserveOut)))
	if overflow {
		return Payout{}, invalidInput("swap numerator overflows")
	}

	reserveInScaled, overflow := new(uint256.Int).MulOverflow(uint256.NewInt(uint64(reserveIn)), uint256.NewInt(swapFeeDenominator))
	if overflow {
		return Payout{}, invalidInput("scaled input reserve overflows")
	}

	denominator, overflow := new(uint256.Int).AddOverflow(reserveInScaled, aWithFee)
	if overflow {
		return Payout{}, invalidInput("swap denominator overflows")
	}
	if denominator.IsZero() {
		return Payout{}, invalidInput("swap denominator is zero")
	}

	totalOut := new(uint256.Int).Div(numerator, denominator)
	if !totalOut.IsUint64() {
		return Payout{}, invalidInput("swap output exceeds representable range")
	}

	shareInt := new(uint256.Int).Div(totalOut, uint256.NewInt(uint64(participantCount)))
	if !shareInt.IsUint64() {
		return Payout{}, invalidInput("per-participant share exceeds representable range")
	}
	share := int64(shareInt.Uint64())

	slip := realizedSlippageBps(avgMinOut, share)

	return Payout{
		TotalOutput:    int64(totalOut.Uint64()),
		Share:          share,
		SlippageBps:    slip,
		ParticipantCnt: participantCount,
	}, nil
}

// realizedSlippageBps computes max(0, avgMin-share)*10000/avgMin, returning
// 0 when avgMin is 0 (spec §4.D).
func realizedSlippageBps(avgMin, share int64) int64 {
	if avgMin <= 0 {
		return 0
	}
	deficit := avgMin - share
	if deficit <= 0 {
		return 0
	}
	num := new(uint256.Int).Mul(uint256.NewInt(uint64(deficit)), uint256.NewInt(bpsDenominator))
	return int64(new(uint256.Int).Div(num, uint256.NewInt(uint64(avgMin))).Uint64())
}

func averageMinOut(deposits []Deposit) int64 {
	if len(deposits) == 0 {
		return 0
	}
	var total int64
	for _, d := range deposits {
		total += d.MinAmountOut
	}
	return total / int64(len(deposits))
}
