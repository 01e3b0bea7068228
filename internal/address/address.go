// Package address validates that sender and recipient identifiers handed to
// the core look like real chain addresses before a deposit is accepted;
// asset identifiers are not checked. It is a format check only — the core never verifies balance or
// ownership, that belongs to the external asset-custody collaborator
// (internal/ledger).
package address

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

// Validate reports whether addr decodes as a well-formed mainnet chain
// address. It mirrors the decode call the teacher's RPC client used for
// ListUnspent — here repurposed as a pure format gate with no node lookup.
func Validate(addr string) error {
	_, err := btcutil.DecodeAddress(addr, &chaincfg.MainNetParams)
	return err
}

// Valid is a boolean convenience wrapper around Validate.
func Valid(addr string) bool {
	return Validate(addr) == nil
}
