package coinjoin

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/darkstar-labs/batchmix/internal/ledger"
	"github.com/darkstar-labs/batchmix/internal/pair"
)

// Engine is the batch orchestrator: the public surface from spec §4.G bound
// to a concrete store, pair registry/resolver, and asset-custody
// collaborator. One Engine instance serves all four denominations.
type Engine struct {
	store    PoolStore
	registry pair.Registry
	resolver pair.Resolver
	custody  ledger.Custody
	events   Events
	now      func() time.Time

	// mixerAddress is the identity the engine transfers through: deposits
	// land here, and it is the `to` on the aggregated swap (spec §4.F).
	mixerAddress string

	initMu      sync.RWMutex
	initialized bool
	owner       string
	factoryAddr string
	routerAddr  string

	// settleMu holds one mutex per denomination so two concurrent attempts
	// to settle the same denomination are serialized (spec §5 Exclusion).
	settleMu map[Denomination]*sync.Mutex
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithEvents wires an Events sink (default NoopEvents).
func WithEvents(e Events) Option {
	return func(eng *Engine) { eng.events = e }
}

// WithClock overrides the engine's notion of "now" for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(eng *Engine) { eng.now = now }
}

// NewEngine constructs an uninitialized Engine. Call Initialize before any
// other surface method (spec §7 NotInitialized policy).
func NewEngine(store PoolStore, registry pair.Registry, resolver pair.Resolver, custody ledger.Custody, mixerAddress string, opts ...Option) *Engine {
	eng := &Engine{
		store:        store,
		registry:     registry,
		resolver:     resolver,
		custody:      custody,
		events:       NoopEvents{},
		now:          time.Now,
		mixerAddress: mixerAddress,
		settleMu:     make(map[Denomination]*sync.Mutex),
	}
	for _, d := range AllDenominations() {
		eng.settleMu[d] = &sync.Mutex{}
	}
	for _, opt := range opts {
		opt(eng)
	}
	return eng
}

// Initialize records the owner/factory/router addresses and flips the
// engine into the initialized state. Calling it twice is rejected (spec
// §6/§7 AlreadyInitialized).
func (e *Engine) Initialize(owner, factoryAddr, routerAddr string) error {
	e.initMu.Lock()
	defer e.initMu.Unlock()
	if e.initialized {
		return alreadyInitialized("engine is already initialized")
	}
	e.owner = owner
	e.factoryAddr = factoryAddr
	e.routerAddr = routerAddr
	e.initialized = true
	return nil
}

func (e *Engine) requireInitialized() error {
	e.initMu.RLock()
	defer e.initMu.RUnlock()
	if !e.initialized {
		return notInitialized("engine has not been initialized")
	}
	return nil
}

// PrivateSwapRequest carries the parameters of spec §4.G's private_swap.
type PrivateSwapRequest struct {
	TokenIn        string
	TokenOut       string
	AmountIn       int64
	MinAmountOut   int64
	MaxSlippageBps uint32
	User           string
	Recipient      string
	// Authorized must be true for the call to proceed; it stands in for
	// the cryptographic require_auth() check the source contract performs
	// on the caller (spec §4.G "Requires user authorization").
	Authorized bool
}

// PrivateSwap validates and durably queues a deposit, then opportunistically
// attempts settlement if the pool is Ready. It never fails because
// settlement failed — only for an uninitialized engine, missing auth, a bad
// amount, a failed transfer-in, a reused nullifier, or a store error (spec
// §4.F "Failure handling inside private_swap").
func (e *Engine) PrivateSwap(ctx context.Context, req PrivateSwapRequest) (int64, error) {
	if err := e.requireInitialized(); err != nil {
		return 0, err
	}
	if !req.Authorized {
		return 0, unauthorized("caller is not authorized for this user address")
	}

	denom, err := FromAmount(req.AmountIn)
	if err != nil {
		return 0, err
	}

	if err := e.custody.Transfer(ctx, req.TokenIn, req.User, e.mixerAddress, req.AmountIn); err != nil {
		return 0, invalidInput("transfer of deposit amount failed: " + err.Error())
	}

	now := e.now()
	deposit := Deposit{
		Commitment:       deriveCommitment(now, req.Recipient),
		Nullifier:        deriveNullifier(req.AmountIn, now, req.User),
		Timestamp:        now,
		ExpiryTimestamp:  now.Add(depositExpiry),
		SenderAddress:    req.User,
		RecipientAddress: req.Recipient,
		TokenIn:          req.TokenIn,
		TokenOut:         req.TokenOut,
		MinAmountOut:     req.MinAmountOut,
		MaxSlippageBps:   req.MaxSlippageBps,
	}

	poolSize, uniqueSenders, err := e.appendDeposit(denom, deposit)
	if err != nil {
		return 0, err
	}

	e.events.DepositAccepted(DepositAccepted{
		Denomination:  denom,
		PoolSize:      poolSize,
		UniqueSenders: uniqueSenders,
		Timestamp:     now.Unix(),
	})

	pool, err := e.store.GetPool(denom)
	if err == nil && pool.Ready() {
		if _, err := e.settleDenomination(ctx, denom, req.TokenIn, req.TokenOut, nil); err != nil {
			// Deposit durability: opportunistic settlement failures are
			// logged and swallowed, never surfaced (spec §4.F, §7).
			log.Printf("coinjoin: opportunistic settlement deferred for denom %s: %v", denom.Symbol(), err)
		}
	}

	return now.Unix(), nil
}

// appendDeposit inserts deposit into its denomination's pool after checking
// nullifier uniqueness, and returns the resulting pool size and unique
// sender count. It holds denom's settlement mutex across its whole
// read-modify-write of the pool, the same way settleDenomination and
// RefundExpiredDeposits do, so a concurrent deposit can never read a pool
// snapshot another deposit, settlement, or refund is about to overwrite.
func (e *Engine) appendDeposit(denom Denomination, deposit Deposit) (int, int, error) {
	mu := e.settleMu[denom]
	mu.Lock()
	defer mu.Unlock()

	if e.store.IsNullifierUsed(deposit.Nullifier) {
		return 0, 0, invalidInput("nullifier has already been used")
	}

	pool, err := e.store.GetPool(denom)
	if err != nil {
		return 0, 0, err
	}

	deposit.FeePaid = feeFor(denom, pool.FeeBasisPoints)
	deposit.Seq = nextSeq(pool.Deposits)
	pool.Deposits = append(pool.Deposits, deposit)

	if err := e.store.UpdatePool(denom, pool); err != nil {
		return 0, 0, err
	}
	e.store.MarkNullifierUsed(deposit.Nullifier)

	return len(pool.Deposits), pool.UniqueSenders(), nil
}

func nextSeq(deposits []Deposit) uint64 {
	var max uint64
	for _, d := range deposits {
		if d.Seq > max {
			max = d.Seq
		}
	}
	if len(deposits) == 0 {
		return 0
	}
	return max + 1
}

// ExecuteCoinjoinMixing explicitly drives settlement for one denomination,
// returning the size of the settled set (0 if the pool was not Ready).
// maxDeposits caps how many candidates the selector may consider, per spec
// §4.G.
func (e *Engine) ExecuteCoinjoinMixing(ctx context.Context, symbol string, maxDeposits *int) (int, error) {
	if err := e.requireInitialized(); err != nil {
		return 0, err
	}

	denom, err := FromSymbol(symbol)
	if err != nil {
		return 0, err
	}

	pool, err := e.store.GetPool(denom)
	if err != nil {
		return 0, err
	}
	if !pool.Ready() {
		return 0, nil
	}
	if len(pool.Deposits) == 0 {
		return 0, nil
	}

	tokenIn, tokenOut := pool.Deposits[0].TokenIn, pool.Deposits[0].TokenOut

	result, err := e.settleDenomination(ctx, denom, tokenIn, tokenOut, maxDeposits)
	if err != nil {
		return 0, err
	}
	return result.AnonymitySetSize, nil
}

// PoolStats is the response shape for get_pool_stats (spec §4.G).
type PoolStats struct {
	CurrentPoolSize   int
	FeeBasisPoints    int64
	EstimatedWaitTime int
}

// GetPoolStats returns the pool's current size, fee, and a naive wait-time
// estimate (spec §4.G: max(0, min_pool_size - current_pool_size) * 5).
func (e *Engine) GetPoolStats(symbol string) (PoolStats, error) {
	denom, err := FromSymbol(symbol)
	if err != nil {
		return PoolStats{}, err
	}
	pool, err := e.store.GetPool(denom)
	if err != nil {
		return PoolStats{}, err
	}

	wait := pool.MinimumPoolSize - len(pool.Deposits)
	if wait < 0 {
		wait = 0
	}

	return PoolStats{
		CurrentPoolSize:   len(pool.Deposits),
		FeeBasisPoints:    pool.FeeBasisPoints,
		EstimatedWaitTime: wait * 5,
	}, nil
}

// DepositDetails is the privacy-safe view returned by get_deposit_details:
// it deliberately omits commitment, nullifier, and sender (spec §4.G).
type DepositDetails struct {
	MinAmountOut    int64
	MaxSlippageBps  uint32
	ExpiryTimestamp int64
	Timestamp       int64
	FeePaid         int64
}

// GetDepositDetails returns the public view of the deposit at index within
// symbol's pool.
func (e *Engine) GetDepositDetails(symbol string, index int) (DepositDetails, error) {
	denom, err := FromSymbol(symbol)
	if err != nil {
		return DepositDetails{}, err
	}
	pool, err := e.store.GetPool(denom)
	if err != nil {
		return DepositDetails{}, err
	}
	if index < 0 || index >= len(pool.Deposits) {
		return DepositDetails{}, invalidInput("deposit index out of range")
	}

	d := pool.Deposits[index]
	return DepositDetails{
		MinAmountOut:    d.MinAmountOut,
		MaxSlippageBps:  d.MaxSlippageBps,
		ExpiryTimestamp: d.ExpiryTimestamp.Unix(),
		Timestamp:       d.Timestamp.Unix(),
		FeePaid:         d.FeePaid,
	}, nil
}

// RefundExpiredDeposits removes deposits past expiry that were never mixed,
// transfers each one's denomination amount of token_in from the mixer back
// to its sender (a failed refund transfer is logged, not returned), and
// returns the removed deposits (spec §3, §9 — the refund path the source
// spec leaves unimplemented).
func (e *Engine) RefundExpiredDeposits(ctx context.Context, symbol string) ([]Deposit, error) {
	denom, err := FromSymbol(symbol)
	if err != nil {
		return nil, err
	}

	mu := e.settleMu[denom]
	mu.Lock()
	defer mu.Unlock()

	pool, err := e.store.GetPool(denom)
	if err != nil {
		return nil, err
	}

	now := e.now()
	var expired, remaining []Deposit
	for _, d := range pool.Deposits {
		if d.Expired(now) {
			expired = append(expired, d)
		} else {
			remaining = append(remaining, d)
		}
	}
	if len(expired) == 0 {
		return nil, nil
	}

	pool.Deposits = remaining
	if err := e.store.UpdatePool(denom, pool); err != nil {
		return nil, err
	}

	for _, d := range expired {
		if err := e.custody.Transfer(ctx, d.TokenIn, e.mixerAddress, d.SenderAddress, denom.Value()); err != nil {
			log.Printf("coinjoin: refund transfer failed for nullifier %x: %v", d.Nullifier, err)
		}
	}

	return expired, nil
}
