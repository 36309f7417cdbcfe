package auction

import (
	"fmt"

	"SealBid/internal/commit"
	"SealBid/internal/logger"
	"SealBid/internal/storage"
)

// CreateAuction opens a sealed-bid auction over an ordered item list.
// A zero startTime means "now". The reserve price applies per item.
// All items move from the caller into house custody, or the whole operation
// is rejected and already-moved items are returned.
// Returns the new round index.
func (h *House) CreateAuction(caller, custodian Hash, items []Hash, startTime, bidPeriod, revealPeriod, reservePrice uint64) (uint64, error) {
	if err := h.gate.acquire(); err != nil {
		return 0, err
	}
	defer h.gate.release()

	if len(items) == 0 {
		return 0, ErrNoItems
	}

	now := h.clock.Now()

	start, bid, reveal, err := h.validatePeriods(now, startTime, bidPeriod, revealPeriod, 0, 0)
	if err != nil {
		return 0, err
	}

	itemSetKey := commit.ItemSetKey(items)

	prev, err := h.store.Auction(custodian, itemSetKey)
	if err != nil {
		return 0, err
	}

	round := uint64(1)
	if prev != nil {
		round = prev.RoundIndex + 1
	}

	a := &Auction{
		Seller:        caller,
		StartTime:     start,
		EndOfBidding:  start + bid,
		EndOfReveal:   start + bid + reveal,
		BidPeriod:     bid,
		RevealPeriod:  reveal,
		ReservePrice:  reservePrice,
		RoundIndex:    round,
		HighestBid:    make(map[Hash]uint64, len(items)),
		HighestBidder: make(map[Hash]Hash, len(items)),
	}

	// Per-item highest bid starts at the reserve price with no bidder.
	for _, item := range items {
		a.HighestBid[item] = reservePrice
	}

	pair, err := AuctionPair(custodian, itemSetKey, a)
	if err != nil {
		return 0, err
	}

	// Record first, then move custody: a callback from the custody
	// collaborator observes the post-mutation record.
	if err := h.store.Apply([]storage.KeyValue{pair}); err != nil {
		return 0, err
	}

	if err := h.takeCustody(caller, custodian, itemSetKey, items, prev); err != nil {
		return 0, err
	}

	h.notify.AuctionCreated(AuctionCreated{
		EventID:      newEventID(),
		Custodian:    custodian,
		ItemSetKey:   itemSetKey,
		Seller:       caller,
		Items:        items,
		StartTime:    start,
		BidPeriod:    bid,
		RevealPeriod: reveal,
		ReservePrice: reservePrice,
		Round:        round,
	})

	return round, nil
}

// takeCustody transfers every item from the seller to the house escrow.
// On a mid-list failure it compensates: already-moved items go back to the
// seller and the registry slot is restored to its previous record, so a
// partial transfer is never observable.
func (h *House) takeCustody(seller, custodian, itemSetKey Hash, items []Hash, prev *Auction) error {
	for i, item := range items {
		err := h.custody.TransferOwnership(custodian, item, seller, h.account)
		if err == nil {
			continue
		}

		for _, moved := range items[:i] {
			if rerr := h.custody.TransferOwnership(custodian, moved, h.account, seller); rerr != nil {
				logger.Error("custody compensation failed",
					"item", moved[:4],
					"error", rerr,
				)
			}
		}

		if rerr := h.store.restore(custodian, itemSetKey, prev); rerr != nil {
			logger.Error("registry restore failed",
				"key", itemSetKey[:4],
				"error", rerr,
			)
		}

		return fmt.Errorf("take custody of item %x:\n%w", item[:8], err)
	}

	return nil
}
