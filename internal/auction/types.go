// Package auction implements the sealed-bid, multi-round auction house:
// the auction registry, the bid ledger, the round controller and the
// settlement engine. All records are durable; every public operation is a
// single serialized read-modify-write guarded against reentrancy.
package auction

import (
	"math"
	"time"

	"SealBid/internal/commit"
)

// Hash is the 32-byte identifier shared with the commit package.
// It names custodians, assets, bidders and item-set keys alike.
type Hash = commit.Hash

// Nonce is the 32-byte blinding value used to seal a bid.
type Nonce = commit.Nonce

const (
	// DefaultMinPeriod is the minimum bidding / reveal period in seconds.
	DefaultMinPeriod = 60
)

// Auction is the durable record for one item set under a custodian.
// The storage slot survives settlement: a later creation over the same
// item-set key reuses it and bumps RoundIndex.
type Auction struct {
	// Seller is the account that created the auction and owns the proceeds.
	Seller Hash

	// StartTime, EndOfBidding and EndOfReveal bound the current round,
	// in unix seconds. EndOfBidding = StartTime + BidPeriod and
	// EndOfReveal = EndOfBidding + RevealPeriod.
	StartTime    uint64
	EndOfBidding uint64
	EndOfReveal  uint64

	// BidPeriod and RevealPeriod are the configured period lengths,
	// retained so later rounds can reuse them.
	BidPeriod    uint64
	RevealPeriod uint64

	// ReservePrice is the per-item floor below which no bid can win.
	ReservePrice uint64

	// RoundIndex counts auction generations over this item-set key.
	// It bumps only on creation, never on an intra-auction round reset,
	// so commitments stay openable across resets.
	RoundIndex uint64

	// Unrevealed counts active, unopened commitments.
	Unrevealed uint64

	// NewHighest counts reveals that raised a per-item highest bid in the
	// current round. Owned by this record, reset on every round reset:
	// the continuation decision of one auction never observes another's.
	NewHighest uint64

	// Settled marks the record as terminally disbursed.
	Settled bool

	// HighestBid holds the per-item highest revealed bid, floored at the
	// reserve price. It never decreases within a round index.
	HighestBid map[Hash]uint64

	// HighestBidder holds the per-item leading bidder; absent or zero
	// means no qualifying bid yet.
	HighestBidder map[Hash]Hash
}

// clone returns a deep copy for read-only snapshots.
func (a *Auction) clone() *Auction {
	cp := *a

	cp.HighestBid = make(map[Hash]uint64, len(a.HighestBid))
	for k, v := range a.HighestBid {
		cp.HighestBid[k] = v
	}

	cp.HighestBidder = make(map[Hash]Hash, len(a.HighestBidder))
	for k, v := range a.HighestBidder {
		cp.HighestBidder[k] = v
	}

	return &cp
}

// Bid is the durable record per (custodian, item-set key, round, item, bidder).
type Bid struct {
	// Commitment is the sealed bid; the zero Hash means no active commitment.
	Commitment Hash

	// Collateral is the escrowed amount. It accumulates across re-commits
	// and is only zeroed by a withdrawal or a forced refund.
	Collateral uint64

	// Revealed is set once a commitment has been opened this round.
	Revealed bool
}

// Custody moves asset ownership. Transfers must be atomic per asset.
type Custody interface {
	TransferOwnership(custodian, asset, from, to Hash) error
	OwnerOf(custodian, asset Hash) (Hash, error)
}

// Payment moves native value in and out of the house escrow account.
type Payment interface {
	// Pay sends amount from the escrow to the recipient.
	Pay(to Hash, amount uint64) error

	// Collect pulls amount from the payer into the escrow.
	Collect(from Hash, amount uint64) error
}

// Clock supplies the current time in unix seconds.
// Injected so timing preconditions are testable.
type Clock interface {
	Now() uint64
}

// SystemClock reads the operating system clock.
type SystemClock struct{}

// Now returns the current unix time in seconds.
func (SystemClock) Now() uint64 {
	return uint64(time.Now().Unix())
}

// safeAdd returns a + b, capping at MaxUint64 on overflow.
// Prevents a crafted collateral sequence from wrapping a balance to zero.
func safeAdd(a, b uint64) uint64 {
	sum := a + b
	if sum < a {
		return math.MaxUint64
	}

	return sum
}
