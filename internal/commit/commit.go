// Package commit implements the bid commitment codec and the item-set
// key derivation. Both are pure functions over blake3.
package commit

import (
	"encoding/binary"

	"github.com/zeebo/blake3"
)

// Hash is a 32-byte identifier for assets, accounts, keys and commitments.
type Hash [32]byte

// Nonce is the 32-byte blinding value a bidder picks per commitment.
type Nonce [32]byte

// Zero is the empty sentinel: a zero Hash means "no active commitment".
var Zero Hash

// Commitment computes the sealed commitment for a bid.
// Layout hashed: nonce || value_u64_LE || custodian || itemSetKey || item || round_u64_LE.
// The round binds the opening to a specific auction generation so an old
// opening cannot be replayed against a later auction over the same items.
func Commitment(nonce Nonce, value uint64, custodian, itemSetKey, item Hash, round uint64) Hash {
	buf := make([]byte, 0, len(nonce)+8+32*3+8)

	buf = append(buf, nonce[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, value)
	buf = append(buf, custodian[:]...)
	buf = append(buf, itemSetKey[:]...)
	buf = append(buf, item[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, round)

	return blake3.Sum256(buf)
}

// Verify reports whether the claimed (nonce, value) opens the stored
// commitment, and returns the recomputed commitment for diagnostics.
func Verify(stored Hash, nonce Nonce, value uint64, custodian, itemSetKey, item Hash, round uint64) (Hash, bool) {
	computed := Commitment(nonce, value, custodian, itemSetKey, item, round)
	return computed, computed == stored
}

// ItemSetKey collapses an ordered asset list into the opaque key that
// addresses an auction. Order-sensitive and one-way: callers must re-supply
// the original list on every operation that iterates items.
func ItemSetKey(items []Hash) Hash {
	buf := make([]byte, 0, len(items)*32)
	for _, item := range items {
		buf = append(buf, item[:]...)
	}

	return blake3.Sum256(buf)
}
