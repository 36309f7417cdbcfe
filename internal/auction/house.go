package auction

import (
	"fmt"
	"math"

	"SealBid/internal/storage"
)

// House owns every public auction operation. Calls are strictly serialized
// by the reentrancy guard; each operation checks its timing preconditions
// once against the injected clock, completes its read-modify-write, and only
// then invokes the custody and payment collaborators.
type House struct {
	store   *Store  // store is the durable registry + bid ledger
	custody Custody // custody moves asset ownership
	pay     Payment // pay moves native value through the escrow
	clock   Clock   // clock supplies the current unix time
	notify  Notifier
	account Hash   // account is the escrow identity holding items mid-auction
	minTime uint64 // minTime is the minimum bid/reveal period in seconds
	gate    guard
}

// Config holds the House collaborators and parameters.
type Config struct {
	// Custody is the asset-ownership collaborator. Required.
	Custody Custody

	// Payment is the value-transfer collaborator. Required.
	Payment Payment

	// Account is the escrow identity items are parked under during auctions.
	Account Hash

	// Clock supplies time; defaults to the system clock.
	Clock Clock

	// Notifier receives events; defaults to the logging notifier.
	Notifier Notifier

	// MinPeriod is the minimum period floor in seconds; defaults to
	// DefaultMinPeriod when zero.
	MinPeriod uint64
}

// New creates a House over the given storage.
func New(db *storage.Storage, cfg Config) *House {
	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock{}
	}

	notify := cfg.Notifier
	if notify == nil {
		notify = LogNotifier{}
	}

	minTime := cfg.MinPeriod
	if minTime == 0 {
		minTime = DefaultMinPeriod
	}

	return &House{
		store:   NewStore(db),
		custody: cfg.Custody,
		pay:     cfg.Payment,
		clock:   clock,
		notify:  notify,
		account: cfg.Account,
		minTime: minTime,
	}
}

// Account returns the escrow identity.
func (h *House) Account() Hash {
	return h.account
}

// GetAuction returns a snapshot of the registry record.
// Read-only: does not take the guard.
func (h *House) GetAuction(custodian, itemSetKey Hash) (*Auction, error) {
	a, err := h.store.Auction(custodian, itemSetKey)
	if err != nil {
		return nil, err
	}

	if a == nil {
		return nil, fmt.Errorf("%w: no auction for key %x", ErrInvalidAuctionIndex, itemSetKey[:8])
	}

	return a.clone(), nil
}

// loadAuction fetches the registry record for a mutating operation,
// rejecting absent auctions.
func (h *House) loadAuction(custodian, itemSetKey Hash) (*Auction, error) {
	a, err := h.store.Auction(custodian, itemSetKey)
	if err != nil {
		return nil, err
	}

	if a == nil || a.RoundIndex == 0 {
		return nil, fmt.Errorf("%w: no auction for key %x", ErrInvalidAuctionIndex, itemSetKey[:8])
	}

	return a, nil
}

// validatePeriods normalizes and checks round timing parameters.
// A zero start means "now"; zero periods fall back to the given defaults
// (themselves zero on creation, forcing explicit values).
func (h *House) validatePeriods(now, startTime, bidPeriod, revealPeriod, defBid, defReveal uint64) (start, bid, reveal uint64, err error) {
	if startTime == 0 {
		startTime = now
	} else if startTime < now {
		return 0, 0, 0, fmt.Errorf("%w: start %d is before %d", ErrInvalidStartTime, startTime, now)
	}

	if bidPeriod == 0 {
		bidPeriod = defBid
	}
	if bidPeriod < h.minTime {
		return 0, 0, 0, fmt.Errorf("%w: %d < %d", ErrBidPeriodTooShort, bidPeriod, h.minTime)
	}

	if revealPeriod == 0 {
		revealPeriod = defReveal
	}
	if revealPeriod < h.minTime {
		return 0, 0, 0, fmt.Errorf("%w: %d < %d", ErrRevealPeriodTooShort, revealPeriod, h.minTime)
	}

	// start + bid + reveal must not wrap, or the window bounds invert.
	if bidPeriod > math.MaxUint64-revealPeriod || startTime > math.MaxUint64-(bidPeriod+revealPeriod) {
		return 0, 0, 0, fmt.Errorf("%w: auction window overflows the clock", ErrInvalidStartTime)
	}

	return startTime, bidPeriod, revealPeriod, nil
}
