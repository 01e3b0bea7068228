package ledger

import (
	"context"
	"fmt"
	"sync"
)

// MemoryCustody is an in-process ledger used by the engine's own tests and
// by local/dev deployments before a real asset-custody backend is wired in.
// Balances are keyed by (asset, holder); the mixer contract's own address
// is just another holder key.
type MemoryCustody struct {
	mu       sync.Mutex
	balances map[string]map[string]int64
}

func NewMemoryCustody() *MemoryCustody {
	return &MemoryCustody{balances: make(map[string]map[string]int64)}
}

// Credit seeds a holder's balance for an asset, for test setup.
func (c *MemoryCustody) Credit(asset, holder string, amount int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensure(asset, holder)
	c.balances[asset][holder] += amount
}

func (c *MemoryCustody) Balance(asset, holder string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balances[asset][holder]
}

func (c *MemoryCustody) ensure(asset, holder string) {
	if _, ok := c.balances[asset]; !ok {
		c.balances[asset] = make(map[string]int64)
	}
	if _, ok := c.balances[asset][holder]; !ok {
		c.balances[asset][holder] = 0
	}
}

func (c *MemoryCustody) Transfer(_ context.Context, asset, from, to string, amount int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensure(asset, from)
	c.ensure(asset, to)
	if c.balances[asset][from] < amount {
		return fmt.Errorf("ledger: insufficient balance for %s holding %s: have %d, need %d", from, asset, c.balances[asset][from], amount)
	}
	c.balances[asset][from] -= amount
	c.balances[asset][to] += amount
	return nil
}
