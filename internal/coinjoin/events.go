package coinjoin

// SettlementResult is published whenever a batch settles successfully
// (spec §4.F); ExecuteCoinjoinMixing returns its AnonymitySetSize.
type SettlementResult struct {
	Denomination     Denomination
	AnonymitySetSize int
	ShareAmount      int64
	SlippageBps      int64
	TotalOutput      int64
}

// DepositAccepted is published every time private_swap durably queues a
// deposit, regardless of whether opportunistic settlement follows.
type DepositAccepted struct {
	Denomination  Denomination
	PoolSize      int
	UniqueSenders int
	Timestamp     int64
}

// Events is the sink the engine publishes to. It is the in-process analogue
// of the teacher's WebSocket Hub broadcast — internal/api adapts a Hub into
// this interface so the core stays free of any HTTP/WebSocket dependency.
type Events interface {
	DepositAccepted(DepositAccepted)
	Settled(SettlementResult)
}

// NoopEvents discards everything; it is the Engine's default.
type NoopEvents struct{}

func (NoopEvents) DepositAccepted(DepositAccepted) {}
func (NoopEvents) Settled(SettlementResult)        {}
