package auction

import (
	"fmt"

	"SealBid/internal/commit"
	"SealBid/internal/logger"
	"SealBid/internal/storage"
)

// EndRound terminates the current bidding-then-reveal cycle.
// If no reveal raised a per-item highest bid this round, the auction settles:
// items and funds disburse and the record is retired. Otherwise the auction
// advances to a fresh round; zero timing parameters reuse the auction's
// configured defaults (or "now" for the start).
//
// The original item list must be supplied again because settlement iterates
// assets and the item-set key derivation is one-way.
func (h *House) EndRound(caller, custodian, itemSetKey Hash, items []Hash, startTime, bidPeriod, revealPeriod uint64) error {
	if err := h.gate.acquire(); err != nil {
		return err
	}
	defer h.gate.release()

	a, err := h.loadAuction(custodian, itemSetKey)
	if err != nil {
		return err
	}

	if a.Settled {
		return fmt.Errorf("%w: auction already settled", ErrInvalidAuctionIndex)
	}

	if commit.ItemSetKey(items) != itemSetKey {
		return fmt.Errorf("%w: item list does not derive key %x", ErrInvalidAuctionIndex, itemSetKey[:8])
	}

	now := h.clock.Now()
	if now <= a.EndOfBidding {
		return fmt.Errorf("%w: now %d, bidding ends %d", ErrBidPeriodOngoing, now, a.EndOfBidding)
	}

	// Ending early inside the reveal window requires every outstanding
	// commitment to have been opened.
	if now <= a.EndOfReveal && a.Unrevealed != 0 {
		return fmt.Errorf("%w: %d commitments unopened", ErrRevealPeriodOngoing, a.Unrevealed)
	}

	if a.NewHighest != 0 {
		return h.nextRound(custodian, itemSetKey, a, now, startTime, bidPeriod, revealPeriod)
	}

	return h.settle(custodian, itemSetKey, a, items)
}

// nextRound resets the auction into another bidding cycle.
// The round index stays put: commitments keyed by it remain openable.
// No asset or fund movement happens on this path.
func (h *House) nextRound(custodian, itemSetKey Hash, a *Auction, now, startTime, bidPeriod, revealPeriod uint64) error {
	start, bid, reveal, err := h.validatePeriods(now, startTime, bidPeriod, revealPeriod, a.BidPeriod, a.RevealPeriod)
	if err != nil {
		return err
	}

	a.StartTime = start
	a.EndOfBidding = start + bid
	a.EndOfReveal = start + bid + reveal
	a.BidPeriod = bid
	a.RevealPeriod = reveal
	a.NewHighest = 0

	pair, err := AuctionPair(custodian, itemSetKey, a)
	if err != nil {
		return err
	}

	if err := h.store.Apply([]storage.KeyValue{pair}); err != nil {
		return err
	}

	logger.Info("round reset",
		"key", itemSetKey[:4],
		"round", a.RoundIndex,
		"start", start,
		"end_of_bidding", a.EndOfBidding,
		"end_of_reveal", a.EndOfReveal,
	)

	return nil
}

// delivery is a planned custody transfer out of escrow.
type delivery struct {
	asset Hash
	to    Hash
}

// payout is a planned payment out of escrow.
type payout struct {
	to     Hash
	amount uint64
}

// settle performs final disbursement: unbid items return to the seller;
// each won item goes to its highest bidder, the seller is paid the winning
// bid, and the winner is refunded collateral above it. Every ledger mutation
// commits before the first collaborator call, so a callback from a payee
// observes only post-settlement state.
func (h *House) settle(custodian, itemSetKey Hash, a *Auction, items []Hash) error {
	pairs := make([]storage.KeyValue, 0, len(items)+1)
	deliveries := make([]delivery, 0, len(items))
	payouts := make([]payout, 0, len(items)*2)

	for _, item := range items {
		bidder := a.HighestBidder[item]
		if bidder == commit.Zero {
			// Reserve not met: the item goes home.
			deliveries = append(deliveries, delivery{asset: item, to: a.Seller})
			continue
		}

		b, err := h.store.Bid(custodian, itemSetKey, a.RoundIndex, item, bidder)
		if err != nil {
			return err
		}

		// A leading bid can only exist through a successful reveal.
		if !b.Revealed {
			return fmt.Errorf("%w: winning bid for item %x", ErrNotRevealed, item[:8])
		}

		price := a.HighestBid[item]
		if b.Collateral < price {
			return fmt.Errorf("winning collateral %d below bid %d for item %x", b.Collateral, price, item[:8])
		}

		excess := b.Collateral - price
		b.Collateral = 0

		pair, err := BidPair(custodian, itemSetKey, a.RoundIndex, item, bidder, b)
		if err != nil {
			return err
		}
		pairs = append(pairs, pair)

		deliveries = append(deliveries, delivery{asset: item, to: bidder})
		payouts = append(payouts, payout{to: a.Seller, amount: price})

		if excess > 0 {
			payouts = append(payouts, payout{to: bidder, amount: excess})
		}
	}

	a.Settled = true

	auctionPair, err := AuctionPair(custodian, itemSetKey, a)
	if err != nil {
		return err
	}
	pairs = append(pairs, auctionPair)

	if err := h.store.Apply(pairs); err != nil {
		return err
	}

	// Collaborator failure past this point is fatal for the call: the
	// ledger is already settled and is not rolled back.
	for _, d := range deliveries {
		if err := h.custody.TransferOwnership(custodian, d.asset, h.account, d.to); err != nil {
			return fmt.Errorf("deliver item %x:\n%w", d.asset[:8], err)
		}
	}

	for _, p := range payouts {
		if err := h.pay.Pay(p.to, p.amount); err != nil {
			return fmt.Errorf("pay %d to %x:\n%w", p.amount, p.to[:8], err)
		}
	}

	logger.Info("auction settled",
		"key", itemSetKey[:4],
		"round", a.RoundIndex,
		"items", len(items),
		"payouts", len(payouts),
	)

	return nil
}
