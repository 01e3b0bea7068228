package pair

import (
	"context"
	"fmt"
	"sync"

	"github.com/darkstar-labs/batchmix/internal/ledger"
)

// MemoryPair is a constant-product reference pair used by the engine's own
// integration tests and local/dev runs. It holds its reserves in the same
// MemoryCustody the mixer itself settles through, so a Swap's output
// transfer and a GetReserves read are always consistent with one another.
// It is not a production DEX adapter — a real deployment wires Pair to
// whatever venue holds the actual liquidity.
type MemoryPair struct {
	mu      sync.Mutex
	address string
	token0  string
	token1  string
	custody *ledger.MemoryCustody
}

// NewMemoryPair creates a pair for (token0, token1) backed by custody, and
// seeds its reserves by crediting custody at the pair's own address.
func NewMemoryPair(address, token0, token1 string, custody *ledger.MemoryCustody, reserve0, reserve1 int64) *MemoryPair {
	custody.Credit(token0, address, reserve0)
	custody.Credit(token1, address, reserve1)
	return &MemoryPair{address: address, token0: token0, token1: token1, custody: custody}
}

func (p *MemoryPair) Token0() string { return p.token0 }
func (p *MemoryPair) Token1() string { return p.token1 }

func (p *MemoryPair) GetReserves(_ context.Context) (int64, int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.custody.Balance(p.token0, p.address), p.custody.Balance(p.token1, p.address), nil
}

func (p *MemoryPair) Swap(ctx context.Context, amount0Out, amount1Out int64, to string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if (amount0Out > 0) == (amount1Out > 0) {
		return fmt.Errorf("pair: exactly one of amount0Out/amount1Out must be positive")
	}

	outAsset, outAmount := p.token1, amount1Out
	if amount0Out > 0 {
		outAsset, outAmount = p.token0, amount0Out
	}

	return p.custody.Transfer(ctx, outAsset, p.address, to, outAmount)
}

// MemoryRegistry is a static Registry+Resolver backed by a fixed set of
// pairs, keyed by an unordered token pair and by address.
type MemoryRegistry struct {
	mu       sync.RWMutex
	byTokens map[pairKey]string
	byAddr   map[string]Pair
}

type pairKey struct{ a, b string }

func newPairKey(a, b string) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{a, b}
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		byTokens: make(map[pairKey]string),
		byAddr:   make(map[string]Pair),
	}
}

// Register associates a token pair and its pair address with a live Pair
// client, so both Registry.GetPair and Resolver.Resolve can serve it.
func (r *MemoryRegistry) Register(tokenA, tokenB, addr string, p Pair) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byTokens[newPairKey(tokenA, tokenB)] = addr
	r.byAddr[addr] = p
}

func (r *MemoryRegistry) GetPair(_ context.Context, tokenA, tokenB string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	addr, ok := r.byTokens[newPairKey(tokenA, tokenB)]
	if !ok {
		return "", fmt.Errorf("pair: no pool registered for %s/%s", tokenA, tokenB)
	}
	return addr, nil
}

func (r *MemoryRegistry) Resolve(_ context.Context, addr string) (Pair, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byAddr[addr]
	if !ok {
		return nil, fmt.Errorf("pair: no pair at address %s", addr)
	}
	return p, nil
}
