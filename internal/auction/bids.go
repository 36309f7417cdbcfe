package auction

import (
	"fmt"

	"SealBid/internal/commit"
	"SealBid/internal/logger"
	"SealBid/internal/storage"
)

// CommitBid records a sealed commitment for one item of the auction.
// Committing again replaces the prior unopened commitment (last-write-wins);
// attached collateral accumulates across commits and is never reset. The one
// exception is the slot backing the caller's current winning position, which
// rejects further commits until settlement.
func (h *House) CommitBid(caller, custodian, itemSetKey, item Hash, commitment Hash, attached uint64) error {
	if err := h.gate.acquire(); err != nil {
		return err
	}
	defer h.gate.release()

	a, err := h.loadAuction(custodian, itemSetKey)
	if err != nil {
		return err
	}

	now := h.clock.Now()
	if now < a.StartTime || now > a.EndOfBidding {
		return fmt.Errorf("%w: now %d, window [%d, %d]", ErrNotInBidPeriod, now, a.StartTime, a.EndOfBidding)
	}

	if commitment == commit.Zero {
		return ErrZeroCommitment
	}

	// The lead is backed by this slot's revealed record; it stays frozen
	// until settlement so the winning collateral cannot be drained through
	// a re-commit that clears the revealed flag.
	if a.HighestBidder[item] == caller {
		return fmt.Errorf("%w: item %x", ErrAlreadyLeading, item[:8])
	}

	b, err := h.store.Bid(custodian, itemSetKey, a.RoundIndex, item, caller)
	if err != nil {
		return err
	}

	prevAuction := a.clone()
	prevBid := *b

	// A slot with no active commitment becomes outstanding now. Covers the
	// first-ever commit and a re-commit after an earlier round's reveal.
	if b.Commitment == commit.Zero {
		a.Unrevealed++
	}

	b.Commitment = commitment
	b.Revealed = false
	b.Collateral = safeAdd(b.Collateral, attached)

	bidPair, err := BidPair(custodian, itemSetKey, a.RoundIndex, item, caller, b)
	if err != nil {
		return err
	}

	auctionPair, err := AuctionPair(custodian, itemSetKey, a)
	if err != nil {
		return err
	}

	if err := h.store.Apply([]storage.KeyValue{auctionPair, bidPair}); err != nil {
		return err
	}

	// Records first, then money: a failed collection unwinds the records,
	// so neither side keeps a partial effect. The guard is held throughout,
	// so the payment rail cannot re-enter.
	if attached > 0 {
		if err := h.pay.Collect(caller, attached); err != nil {
			h.restoreCommit(custodian, itemSetKey, a.RoundIndex, item, caller, prevAuction, &prevBid)
			return fmt.Errorf("collect collateral:\n%w", err)
		}
	}

	logger.Debug("bid committed",
		"key", itemSetKey[:4],
		"item", item[:4],
		"bidder", caller[:4],
		"round", a.RoundIndex,
		"attached", attached,
	)

	return nil
}

// restoreCommit rewrites the auction and bid records to their pre-commit
// state after a failed collateral collection.
func (h *House) restoreCommit(custodian, itemSetKey Hash, round uint64, item, bidder Hash, a *Auction, b *Bid) {
	bidPair, err := BidPair(custodian, itemSetKey, round, item, bidder, b)
	if err != nil {
		logger.Error("commit compensation failed", "error", err)
		return
	}

	auctionPair, err := AuctionPair(custodian, itemSetKey, a)
	if err != nil {
		logger.Error("commit compensation failed", "error", err)
		return
	}

	if err := h.store.Apply([]storage.KeyValue{auctionPair, bidPair}); err != nil {
		logger.Error("commit compensation failed", "error", err)
	}
}

// RevealBid opens a commitment by presenting the bid value and nonce.
// A matching opening clears the commitment; if the bidder's collateral does
// not cover the value, the reveal is accepted as insufficient and the whole
// collateral refunds immediately. Otherwise a value above the per-item
// highest bid takes the lead.
func (h *House) RevealBid(caller, custodian, itemSetKey, item Hash, value uint64, nonce Nonce) error {
	if err := h.gate.acquire(); err != nil {
		return err
	}
	defer h.gate.release()

	a, err := h.loadAuction(custodian, itemSetKey)
	if err != nil {
		return err
	}

	now := h.clock.Now()
	if now <= a.EndOfBidding || now > a.EndOfReveal {
		return fmt.Errorf("%w: now %d, window (%d, %d]", ErrNotInRevealPeriod, now, a.EndOfBidding, a.EndOfReveal)
	}

	b, err := h.store.Bid(custodian, itemSetKey, a.RoundIndex, item, caller)
	if err != nil {
		return err
	}

	computed, ok := commit.Verify(b.Commitment, nonce, value, custodian, itemSetKey, item, a.RoundIndex)
	if !ok {
		return fmt.Errorf("%w: computed %x, stored %x", ErrInvalidOpening, computed, b.Commitment)
	}

	sealed := b.Commitment

	b.Commitment = commit.Zero
	b.Revealed = true

	if a.Unrevealed > 0 {
		a.Unrevealed--
	}

	refund := uint64(0)
	if b.Collateral < value {
		// Insufficient collateral: the reveal stands but the bidder is out
		// of the running for this item. Refund everything at once.
		refund = b.Collateral
		b.Collateral = 0
	} else if value > a.HighestBid[item] {
		a.HighestBid[item] = value
		a.HighestBidder[item] = caller
		a.NewHighest++
	}

	bidPair, err := BidPair(custodian, itemSetKey, a.RoundIndex, item, caller, b)
	if err != nil {
		return err
	}

	auctionPair, err := AuctionPair(custodian, itemSetKey, a)
	if err != nil {
		return err
	}

	if err := h.store.Apply([]storage.KeyValue{auctionPair, bidPair}); err != nil {
		return err
	}

	// Refund after the ledger shows zero collateral: a malicious payee
	// calling back in observes nothing left to withdraw.
	if refund > 0 {
		if err := h.pay.Pay(caller, refund); err != nil {
			return fmt.Errorf("refund insufficient-collateral reveal:\n%w", err)
		}
	}

	h.notify.RevealCompleted(RevealCompleted{
		EventID:    newEventID(),
		Custodian:  custodian,
		ItemSetKey: itemSetKey,
		Item:       item,
		Commitment: sealed,
		Bidder:     caller,
		Nonce:      nonce,
		Value:      value,
	})

	return nil
}
