package coinjoin

import "time"

const (
	defaultFeeBasisPoints  = 10 // 0.10% mixer fee on deposit
	defaultMinimumPoolSize = 3
	defaultMaximumPoolSize = 10
	depositExpiry          = 48 * time.Hour
)

// Deposit is a single participant's pending entry in a denomination pool.
type Deposit struct {
	Commitment [32]byte
	Nullifier  [32]byte

	Timestamp       time.Time
	ExpiryTimestamp time.Time

	SenderAddress    string
	RecipientAddress string

	TokenIn  string
	TokenOut string

	MinAmountOut   int64
	MaxSlippageBps uint32
	FeePaid        int64

	// Seq is the monotonic insertion-order tie-break used by the selector's
	// stable sort (spec §9: Go slices lose the original Vec ordering once
	// copied for sorting, so it is captured explicitly here).
	Seq uint64
}

// Expired reports whether the deposit's expiry has passed as of now.
func (d Deposit) Expired(now time.Time) bool {
	return now.After(d.ExpiryTimestamp)
}

// Pool holds the pending deposits for one denomination.
type Pool struct {
	Denomination Denomination

	Deposits []Deposit

	FeeBasisPoints  int64
	MinimumPoolSize int
	MaximumPoolSize int

	// AccumulatorRoot is a reserved 32-byte tag for a future Merkle
	// accumulator. Unused by the core; preserved opaque per spec §3.
	AccumulatorRoot [32]byte
}

// NewPool constructs an empty pool for denom with the default configuration.
func NewPool(denom Denomination) *Pool {
	return &Pool{
		Denomination:    denom,
		Deposits:        nil,
		FeeBasisPoints:  defaultFeeBasisPoints,
		MinimumPoolSize: defaultMinimumPoolSize,
		MaximumPoolSize: defaultMaximumPoolSize,
	}
}

// UniqueSenders returns the number of distinct SenderAddress values among
// the pool's deposits. O(N²) is acceptable at N ≤ MaximumPoolSize (spec §9).
func (p *Pool) UniqueSenders() int {
	seen := make([]string, 0, len(p.Deposits))
	for _, d := range p.Deposits {
		found := false
		for _, s := range seen {
			if s == d.SenderAddress {
				found = true
				break
			}
		}
		if !found {
			seen = append(seen, d.SenderAddress)
		}
	}
	return len(seen)
}

// Ready reports whether the pool has enough distinct senders to mix,
// regardless of total deposit count (spec §8 property 3).
func (p *Pool) Ready() bool {
	return p.UniqueSenders() >= p.MinimumPoolSize
}

// removeByNullifier returns a new deposit slice with every deposit whose
// Nullifier is in the given set removed, preserving relative order
// (spec §4.F step 6, §8 property 8).
func removeByNullifier(deposits []Deposit, remove map[[32]byte]bool) []Deposit {
	out := make([]Deposit, 0, len(deposits))
	for _, d := range deposits {
		if !remove[d.Nullifier] {
			out = append(out, d)
		}
	}
	return out
}

// feeFor computes the deposit fee per spec §3: denomination · fee_bps / 10000.
func feeFor(denom Denomination, feeBasisPoints int64) int64 {
	return denom.Value() * feeBasisPoints / 10_000
}
