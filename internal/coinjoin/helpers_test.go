package coinjoin

import "time"

func mkDeposit(seq uint64, minOut int64, maxSlippage uint32, sender string) Deposit {
	now := time.Unix(1_700_000_000, 0)
	return Deposit{
		Nullifier:        [32]byte{byte(seq + 1)},
		Timestamp:        now,
		ExpiryTimestamp:  now.Add(depositExpiry),
		SenderAddress:    sender,
		RecipientAddress: sender + "-recipient",
		TokenIn:          "USDC",
		TokenOut:         "XLM",
		MinAmountOut:     minOut,
		MaxSlippageBps:   maxSlippage,
		Seq:              seq,
	}
}
