package coinjoin

import (
	"encoding/binary"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// deriveCommitment and deriveNullifier build the server-side placeholder
// tags spec §9 describes: in production these 32-byte values are supplied
// by the client alongside a zero-knowledge proof the core would verify
// with a pluggable predicate; until then the core derives deterministic
// stand-ins using the same double-SHA256 primitive Bitcoin uses for txids.
// The core's only real obligation is nullifier-uniqueness checking — it
// never interprets either tag beyond equality.

func deriveCommitment(timestamp time.Time, recipient string) [32]byte {
	buf := make([]byte, 8, 8+len(recipient))
	binary.BigEndian.PutUint64(buf, uint64(timestamp.Unix()))
	buf = append(buf, []byte(recipient)...)
	return chainhash.DoubleHashH(buf)
}

func deriveNullifier(amount int64, timestamp time.Time, sender string) [32]byte {
	buf := make([]byte, 16, 16+len(sender))
	binary.BigEndian.PutUint64(buf[0:8], uint64(amount))
	binary.BigEndian.PutUint64(buf[8:16], uint64(timestamp.Unix()))
	buf = append(buf, []byte(sender)...)
	return chainhash.DoubleHashH(buf)
}
