package auction

import (
	"fmt"

	"SealBid/internal/commit"
	"SealBid/internal/logger"
	"SealBid/internal/storage"
)

// WithdrawCollateral pays out a bid slot whose commitment has been cleared
// (revealed, or never committed). While the referenced round is the live one,
// the current per-item highest bidder stays escrowed until settlement.
func (h *House) WithdrawCollateral(caller, custodian, itemSetKey Hash, round uint64, item Hash) error {
	if err := h.gate.acquire(); err != nil {
		return err
	}
	defer h.gate.release()

	a, b, err := h.loadWithdrawal(caller, custodian, itemSetKey, round, item)
	if err != nil {
		return err
	}

	if b.Commitment != commit.Zero {
		return ErrUnrevealedBid
	}

	if round == a.RoundIndex && !a.Settled && a.HighestBidder[item] == caller {
		return ErrCannotWithdraw
	}

	return h.payOut(caller, custodian, itemSetKey, round, item, a, b)
}

// WithdrawCollateralBeforeReveal refunds a bidder who committed but will not
// open the commitment, instead of the funds being lost implicitly. It is
// never usable once a reveal succeeded. The commitment is cleared so the
// round's outstanding count stays accurate.
func (h *House) WithdrawCollateralBeforeReveal(caller, custodian, itemSetKey Hash, round uint64, item Hash) error {
	if err := h.gate.acquire(); err != nil {
		return err
	}
	defer h.gate.release()

	a, b, err := h.loadWithdrawal(caller, custodian, itemSetKey, round, item)
	if err != nil {
		return err
	}

	if b.Revealed {
		return ErrWithdrawAfterReveal
	}

	// Winning collateral stays escrowed until settlement on this path too.
	if round == a.RoundIndex && !a.Settled && a.HighestBidder[item] == caller {
		return ErrCannotWithdraw
	}

	if b.Commitment != commit.Zero {
		b.Commitment = commit.Zero

		if round == a.RoundIndex && a.Unrevealed > 0 {
			a.Unrevealed--
		}
	}

	return h.payOut(caller, custodian, itemSetKey, round, item, a, b)
}

// loadWithdrawal fetches the auction and bid records for a withdrawal,
// rejecting round indexes that do not exist yet.
func (h *House) loadWithdrawal(caller, custodian, itemSetKey Hash, round uint64, item Hash) (*Auction, *Bid, error) {
	a, err := h.loadAuction(custodian, itemSetKey)
	if err != nil {
		return nil, nil, err
	}

	if round == 0 || round > a.RoundIndex {
		return nil, nil, fmt.Errorf("%w: round %d, current %d", ErrInvalidAuctionIndex, round, a.RoundIndex)
	}

	b, err := h.store.Bid(custodian, itemSetKey, round, item, caller)
	if err != nil {
		return nil, nil, err
	}

	return a, b, nil
}

// payOut zeroes the slot's collateral, commits both records, then pays the
// caller. The ledger shows zero before the payment rail runs; a payment
// failure is fatal for the call and deliberately not rolled back.
func (h *House) payOut(caller, custodian, itemSetKey Hash, round uint64, item Hash, a *Auction, b *Bid) error {
	amount := b.Collateral
	b.Collateral = 0

	bidPair, err := BidPair(custodian, itemSetKey, round, item, caller, b)
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

	if amount > 0 {
		if err := h.pay.Pay(caller, amount); err != nil {
			return fmt.Errorf("pay withdrawal:\n%w", err)
		}
	}

	logger.Debug("collateral withdrawn",
		"key", itemSetKey[:4],
		"item", item[:4],
		"bidder", caller[:4],
		"round", round,
		"amount", amount,
	)

	return nil
}
