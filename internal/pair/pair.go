// Package pair defines the external liquidity-pool collaborator (spec §1,
// §6): a thin constant-product AMM pair the core swaps against, and the
// registry that maps a token pair to its pool address.
package pair

import "context"

// Pair mirrors a Uniswap V2-style pool: ordered reserves, a fixed token
// ordering, and a one-sided swap entry point.
type Pair interface {
	Token0() string
	Token1() string
	GetReserves(ctx context.Context) (reserve0, reserve1 int64, err error)
	// Swap requests amount0Out of Token0 and/or amount1Out of Token1 be
	// sent to `to`. Exactly one of the two is nonzero for a one-sided
	// output (spec §6).
	Swap(ctx context.Context, amount0Out, amount1Out int64, to string) error
}

// Registry resolves a token pair to the pair contract trading it.
type Registry interface {
	GetPair(ctx context.Context, tokenA, tokenB string) (addr string, err error)
}

// Resolver binds a pair address (as returned by Registry.GetPair) to a live
// Pair client, mirroring the way the original contract constructs a fresh
// pair client from an address rather than holding one long-lived.
type Resolver interface {
	Resolve(ctx context.Context, addr string) (Pair, error)
}
