// Package ledger defines the asset-custody collaborator the core settles
// against (spec §1, §6). The core never holds real assets itself; every
// transfer is delegated to whatever ledger implementation the deployment
// wires in (an EVM token contract, a Stellar asset, a UTXO wallet, ...).
package ledger

import "context"

// Custody is the transfer primitive the core uses to move funds in and
// out of its own custody. Implementations must be atomic with the
// caller's transaction (spec §6).
type Custody interface {
	Transfer(ctx context.Context, asset, from, to string, amount int64) error
}
