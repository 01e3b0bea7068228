package coinjoin

import "sync"

// PoolStore is the persistence boundary for pools and the global nullifier
// set (spec §4.B). A Postgres-backed implementation lives in internal/db;
// MemoryStore below is the in-process default used in dev/test and as the
// fallback when no database is configured.
type PoolStore interface {
	GetPool(d Denomination) (*Pool, error)
	UpdatePool(d Denomination, pool *Pool) error
	IsNullifierUsed(nullifier [32]byte) bool
	MarkNullifierUsed(nullifier [32]byte)
}

// MemoryStore is a PoolStore guarded by a single RWMutex. All four
// denomination pools are created at construction time (spec §3 lifecycle:
// "Pools are created at system initialization").
type MemoryStore struct {
	mu         sync.RWMutex
	pools      map[Denomination]*Pool
	nullifiers map[[32]byte]bool
}

// NewMemoryStore creates a store with one empty pool per denomination.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		pools:      make(map[Denomination]*Pool),
		nullifiers: make(map[[32]byte]bool),
	}
	for _, d := range AllDenominations() {
		s.pools[d] = NewPool(d)
	}
	return s
}

func (s *MemoryStore) GetPool(d Denomination) (*Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pools[d]
	if !ok {
		return nil, invalidInput("unknown denomination")
	}
	// Return a shallow copy so callers mutate their own view; UpdatePool
	// persists the authoritative version back under the write lock.
	cp := *p
	cp.Deposits = append([]Deposit(nil), p.Deposits...)
	return &cp, nil
}

func (s *MemoryStore) UpdatePool(d Denomination, pool *Pool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pools[d]; !ok {
		return invalidInput("unknown denomination")
	}
	s.pools[d] = pool
	return nil
}

func (s *MemoryStore) IsNullifierUsed(nullifier [32]byte) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nullifiers[nullifier]
}

func (s *MemoryStore) MarkNullifierUsed(nullifier [32]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nullifiers[nullifier] = true
}
