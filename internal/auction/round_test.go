package auction

import (
	"errors"
	"testing"

	"SealBid/internal/commit"
)

// --- reveal ---

// TestRevealBidHappyPath verifies a valid opening takes the lead and
// emits the notification.
func TestRevealBidHappyPath(t *testing.T) {
	f := newFixture(t)
	f.fund(bidderA, 50)

	key := f.createAuction([]Hash{item1}, 10)

	f.commitBid(bidderA, key, item1, 15, Nonce{0x01}, 15)

	f.clock.advance(period + 1)
	f.revealBid(bidderA, key, item1, 15, Nonce{0x01})

	a, _ := f.house.GetAuction(custodianID, key)

	if a.HighestBid[item1] != 15 {
		t.Errorf("expected highest 15, got %d", a.HighestBid[item1])
	}

	if a.HighestBidder[item1] != bidderA {
		t.Error("bidder A should lead")
	}

	if a.Unrevealed != 0 {
		t.Errorf("expected 0 unrevealed, got %d", a.Unrevealed)
	}

	if len(f.events.reveals) != 1 {
		t.Fatalf("expected 1 reveal event, got %d", len(f.events.reveals))
	}

	ev := f.events.reveals[0]
	if ev.Bidder != bidderA || ev.Value != 15 || ev.Nonce != (Nonce{0x01}) {
		t.Errorf("unexpected reveal event: %+v", ev)
	}

	f.checkConservation()
}

// TestRevealBidInvalidOpening rejects a mismatched (nonce, value) pair.
func TestRevealBidInvalidOpening(t *testing.T) {
	f := newFixture(t)
	f.fund(bidderA, 50)

	key := f.createAuction([]Hash{item1}, 10)
	f.commitBid(bidderA, key, item1, 15, Nonce{0x01}, 15)

	f.clock.advance(period + 1)

	err := f.house.RevealBid(bidderA, custodianID, key, item1, 16, Nonce{0x01})
	if !errors.Is(err, ErrInvalidOpening) {
		t.Errorf("wrong value: expected ErrInvalidOpening, got %v", err)
	}

	err = f.house.RevealBid(bidderA, custodianID, key, item1, 15, Nonce{0x02})
	if !errors.Is(err, ErrInvalidOpening) {
		t.Errorf("wrong nonce: expected ErrInvalidOpening, got %v", err)
	}

	// A rejected opening leaves the commitment intact.
	a, _ := f.house.GetAuction(custodianID, key)
	if a.Unrevealed != 1 {
		t.Errorf("expected 1 unrevealed, got %d", a.Unrevealed)
	}
}

// TestRevealBidOutsideWindow rejects reveals during bidding and after
// the reveal window.
func TestRevealBidOutsideWindow(t *testing.T) {
	f := newFixture(t)
	f.fund(bidderA, 50)

	key := f.createAuction([]Hash{item1}, 10)
	f.commitBid(bidderA, key, item1, 15, Nonce{0x01}, 15)

	err := f.house.RevealBid(bidderA, custodianID, key, item1, 15, Nonce{0x01})
	if !errors.Is(err, ErrNotInRevealPeriod) {
		t.Errorf("during bidding: expected ErrNotInRevealPeriod, got %v", err)
	}

	f.clock.advance(2*period + 1)

	err = f.house.RevealBid(bidderA, custodianID, key, item1, 15, Nonce{0x01})
	if !errors.Is(err, ErrNotInRevealPeriod) {
		t.Errorf("after window: expected ErrNotInRevealPeriod, got %v", err)
	}
}

// TestRevealBidInsufficientCollateral verifies the reveal is accepted
// but the whole collateral refunds and the bidder cannot lead.
func TestRevealBidInsufficientCollateral(t *testing.T) {
	f := newFixture(t)
	f.fund(bidderA, 8)

	key := f.createAuction([]Hash{item1}, 10)
	f.commitBid(bidderA, key, item1, 20, Nonce{0x01}, 8)

	f.clock.advance(period + 1)
	f.revealBid(bidderA, key, item1, 20, Nonce{0x01})

	if got := f.balance(bidderA); got != 8 {
		t.Errorf("full collateral should refund immediately, balance %d", got)
	}

	a, _ := f.house.GetAuction(custodianID, key)

	if a.HighestBidder[item1] != commit.Zero {
		t.Error("insufficient reveal must not take the lead")
	}

	if a.HighestBid[item1] != 10 {
		t.Errorf("highest should stay at reserve, got %d", a.HighestBid[item1])
	}

	f.checkConservation()
}

// TestHighestBidMonotonic verifies the per-item highest never decreases
// across a sequence of valid reveals.
func TestHighestBidMonotonic(t *testing.T) {
	f := newFixture(t)
	f.fund(bidderA, 50)
	f.fund(bidderB, 50)
	f.fund(bidderC, 50)

	key := f.createAuction([]Hash{item1}, 10)

	f.commitBid(bidderA, key, item1, 12, Nonce{0x0A}, 12)
	f.commitBid(bidderB, key, item1, 18, Nonce{0x0B}, 18)
	f.commitBid(bidderC, key, item1, 15, Nonce{0x0C}, 15)

	f.clock.advance(period + 1)

	highs := []uint64{10}
	for _, r := range []struct {
		bidder Hash
		value  uint64
		nonce  Nonce
	}{
		{bidderA, 12, Nonce{0x0A}},
		{bidderB, 18, Nonce{0x0B}},
		{bidderC, 15, Nonce{0x0C}},
	} {
		f.revealBid(r.bidder, key, item1, r.value, r.nonce)

		a, _ := f.house.GetAuction(custodianID, key)
		highs = append(highs, a.HighestBid[item1])
	}

	for i := 1; i < len(highs); i++ {
		if highs[i] < highs[i-1] {
			t.Fatalf("highest bid decreased: %v", highs)
		}
	}

	a, _ := f.house.GetAuction(custodianID, key)
	if a.HighestBidder[item1] != bidderB {
		t.Error("bidder B should lead with 18")
	}
}

// --- end round ---

// TestEndRoundTooEarly rejects termination during bidding.
func TestEndRoundTooEarly(t *testing.T) {
	f := newFixture(t)

	key := f.createAuction([]Hash{item1}, 10)

	err := f.house.EndRound(sellerID, custodianID, key, []Hash{item1}, 0, 0, 0)
	if !errors.Is(err, ErrBidPeriodOngoing) {
		t.Errorf("expected ErrBidPeriodOngoing, got %v", err)
	}
}

// TestEndRoundOutstandingCommitments rejects an early end while
// commitments remain unopened inside the reveal window.
func TestEndRoundOutstandingCommitments(t *testing.T) {
	f := newFixture(t)
	f.fund(bidderA, 50)

	key := f.createAuction([]Hash{item1}, 10)
	f.commitBid(bidderA, key, item1, 15, Nonce{0x01}, 15)

	f.clock.advance(period + 1)

	err := f.house.EndRound(sellerID, custodianID, key, []Hash{item1}, 0, 0, 0)
	if !errors.Is(err, ErrRevealPeriodOngoing) {
		t.Errorf("expected ErrRevealPeriodOngoing, got %v", err)
	}

	// Once the only commitment opens, the round can end early.
	f.revealBid(bidderA, key, item1, 15, Nonce{0x01})

	if err := f.house.EndRound(sellerID, custodianID, key, []Hash{item1}, 0, 0, 0); err != nil {
		t.Fatalf("end round after reveals: %v", err)
	}
}

// TestEndRoundItemListMismatch rejects a list that does not derive the key.
func TestEndRoundItemListMismatch(t *testing.T) {
	f := newFixture(t)

	key := f.createAuction([]Hash{item1, item2}, 10)

	f.clock.advance(2*period + 1)

	err := f.house.EndRound(sellerID, custodianID, key, []Hash{item2, item1}, 0, 0, 0)
	if !errors.Is(err, ErrInvalidAuctionIndex) {
		t.Errorf("reordered item list: expected ErrInvalidAuctionIndex, got %v", err)
	}
}

// TestLeaderSlotFrozenAfterReset verifies the slot backing a lead cannot
// be re-committed or drained after a round reset, and settlement still
// completes.
func TestLeaderSlotFrozenAfterReset(t *testing.T) {
	f := newFixture(t)
	f.fund(bidderA, 15)

	key := f.createAuction([]Hash{item1}, 10)
	f.commitBid(bidderA, key, item1, 15, Nonce{0x01}, 15)

	f.clock.advance(period + 1)
	f.revealBid(bidderA, key, item1, 15, Nonce{0x01})

	if err := f.house.EndRound(sellerID, custodianID, key, []Hash{item1}, 0, 0, 0); err != nil {
		t.Fatalf("reset: %v", err)
	}

	// The new cycle is open for everyone but the leader's own slot: a
	// re-commit there would clear the revealed flag backing the lead.
	sealed := commit.Commitment(Nonce{0x02}, 15, custodianID, key, item1, 1)
	err := f.house.CommitBid(bidderA, custodianID, key, item1, sealed, 0)
	if !errors.Is(err, ErrAlreadyLeading) {
		t.Fatalf("re-commit by leader: expected ErrAlreadyLeading, got %v", err)
	}

	// Neither withdrawal path releases the winning collateral.
	err = f.house.WithdrawCollateralBeforeReveal(bidderA, custodianID, key, 1, item1)
	if !errors.Is(err, ErrWithdrawAfterReveal) {
		t.Errorf("before-reveal withdraw by leader: expected ErrWithdrawAfterReveal, got %v", err)
	}

	err = f.house.WithdrawCollateral(bidderA, custodianID, key, 1, item1)
	if !errors.Is(err, ErrCannotWithdraw) {
		t.Errorf("withdraw by leader: expected ErrCannotWithdraw, got %v", err)
	}

	f.checkConservation()

	// The revealed flag survived, so settlement delivers and pays out.
	f.clock.advance(2*period + 1)
	if err := f.house.EndRound(sellerID, custodianID, key, []Hash{item1}, 0, 0, 0); err != nil {
		t.Fatalf("settle: %v", err)
	}

	if f.owner(item1) != bidderA {
		t.Error("item should go to the leader")
	}

	if got := f.balance(sellerID); got != 15 {
		t.Errorf("seller should be paid 15, got %d", got)
	}

	f.checkConservation()
}

// TestEndRoundResetsOnQualifyingReveal verifies a round with a new
// highest bid advances instead of settling.
func TestEndRoundResetsOnQualifyingReveal(t *testing.T) {
	f := newFixture(t)
	f.fund(bidderA, 50)

	key := f.createAuction([]Hash{item1}, 10)
	f.commitBid(bidderA, key, item1, 15, Nonce{0x01}, 15)

	f.clock.advance(period + 1)
	f.revealBid(bidderA, key, item1, 15, Nonce{0x01})

	resetAt := f.clock.now
	if err := f.house.EndRound(sellerID, custodianID, key, []Hash{item1}, 0, 0, 0); err != nil {
		t.Fatalf("end round: %v", err)
	}

	a, _ := f.house.GetAuction(custodianID, key)

	if a.Settled {
		t.Fatal("auction should not settle after a qualifying reveal")
	}

	if a.RoundIndex != 1 {
		t.Error("round index must not bump on an intra-auction reset")
	}

	if a.StartTime != resetAt || a.EndOfBidding != resetAt+period {
		t.Error("reset should reuse the configured periods from now")
	}

	if a.NewHighest != 0 {
		t.Error("qualifying-reveal counter should reset")
	}

	// The lead carries into the new round.
	if a.HighestBid[item1] != 15 || a.HighestBidder[item1] != bidderA {
		t.Error("standings should carry across the reset")
	}

	// Items stay in escrow on the reset path.
	if f.owner(item1) != houseID {
		t.Error("no custody movement on a round reset")
	}
}

// TestEndRoundSettlesTwoItemScenario runs the two-item scenario: A wins
// item 1 at 15, item 2 returns unbid, B withdraws its losing collateral.
func TestEndRoundSettlesTwoItemScenario(t *testing.T) {
	f := newFixture(t)
	f.fund(bidderA, 15)
	f.fund(bidderB, 5)

	key := f.createAuction([]Hash{item1, item2}, 10)

	f.commitBid(bidderA, key, item1, 15, Nonce{0x0A}, 15)
	f.commitBid(bidderB, key, item1, 5, Nonce{0x0B}, 5)

	f.clock.advance(period + 1)
	f.revealBid(bidderA, key, item1, 15, Nonce{0x0A})
	f.revealBid(bidderB, key, item1, 5, Nonce{0x0B})
	f.checkConservation()

	// A's reveal qualified, so the first end resets into a fresh round.
	if err := f.house.EndRound(sellerID, custodianID, key, []Hash{item1, item2}, 0, 0, 0); err != nil {
		t.Fatalf("first end round: %v", err)
	}

	// Nothing further happens; the next end settles.
	f.clock.advance(2*period + 1)
	if err := f.house.EndRound(sellerID, custodianID, key, []Hash{item1, item2}, 0, 0, 0); err != nil {
		t.Fatalf("second end round: %v", err)
	}

	if f.owner(item1) != bidderA {
		t.Error("item 1 should go to bidder A")
	}

	if f.owner(item2) != sellerID {
		t.Error("unbid item 2 should return to the seller")
	}

	if got := f.balance(sellerID); got != 15 {
		t.Errorf("seller should be paid 15, got %d", got)
	}

	a, _ := f.house.GetAuction(custodianID, key)
	if !a.Settled {
		t.Fatal("auction should be settled")
	}

	// B lost with sufficient collateral: 5 still withdrawable.
	if err := f.house.WithdrawCollateral(bidderB, custodianID, key, 1, item1); err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	if got := f.balance(bidderB); got != 5 {
		t.Errorf("bidder B should recover 5, got %d", got)
	}

	f.checkConservation()
}

// TestEndRoundRefundsWinnerExcess verifies collateral above the winning
// bid returns to the winner at settlement.
func TestEndRoundRefundsWinnerExcess(t *testing.T) {
	f := newFixture(t)
	f.fund(bidderA, 40)

	key := f.createAuction([]Hash{item1}, 10)
	f.commitBid(bidderA, key, item1, 25, Nonce{0x01}, 40)

	f.clock.advance(period + 1)
	f.revealBid(bidderA, key, item1, 25, Nonce{0x01})

	if err := f.house.EndRound(sellerID, custodianID, key, []Hash{item1}, 0, 0, 0); err != nil {
		t.Fatalf("first end round: %v", err)
	}

	f.clock.advance(2*period + 1)
	if err := f.house.EndRound(sellerID, custodianID, key, []Hash{item1}, 0, 0, 0); err != nil {
		t.Fatalf("second end round: %v", err)
	}

	if got := f.balance(bidderA); got != 15 {
		t.Errorf("winner should get back 40-25=15, got %d", got)
	}

	if got := f.balance(sellerID); got != 25 {
		t.Errorf("seller should be paid 25, got %d", got)
	}

	f.checkConservation()
}

// TestEndRoundSettledTwiceRejected verifies settlement is terminal.
func TestEndRoundSettledTwiceRejected(t *testing.T) {
	f := newFixture(t)

	key := f.createAuction([]Hash{item1}, 10)

	f.clock.advance(2*period + 1)
	if err := f.house.EndRound(sellerID, custodianID, key, []Hash{item1}, 0, 0, 0); err != nil {
		t.Fatalf("end round: %v", err)
	}

	err := f.house.EndRound(sellerID, custodianID, key, []Hash{item1}, 0, 0, 0)
	if !errors.Is(err, ErrInvalidAuctionIndex) {
		t.Errorf("expected ErrInvalidAuctionIndex on settled auction, got %v", err)
	}
}

// TestEndRoundUnknownAuction rejects absent auctions.
func TestEndRoundUnknownAuction(t *testing.T) {
	f := newFixture(t)

	err := f.house.EndRound(sellerID, custodianID, Hash{0xEE}, []Hash{item1}, 0, 0, 0)
	if !errors.Is(err, ErrInvalidAuctionIndex) {
		t.Errorf("expected ErrInvalidAuctionIndex, got %v", err)
	}
}

// TestCommitRevealAcrossReset verifies a bidder can out-bid the carried
// lead in the round after a reset, and the later settlement honors it.
func TestCommitRevealAcrossReset(t *testing.T) {
	f := newFixture(t)
	f.fund(bidderA, 50)
	f.fund(bidderB, 50)

	key := f.createAuction([]Hash{item1}, 10)
	f.commitBid(bidderA, key, item1, 15, Nonce{0x0A}, 15)

	f.clock.advance(period + 1)
	f.revealBid(bidderA, key, item1, 15, Nonce{0x0A})

	if err := f.house.EndRound(sellerID, custodianID, key, []Hash{item1}, 0, 0, 0); err != nil {
		t.Fatalf("reset: %v", err)
	}

	// New cycle, same round index: B out-bids the carried lead.
	f.commitBid(bidderB, key, item1, 20, Nonce{0x0B}, 20)

	f.clock.advance(period + 1)
	f.revealBid(bidderB, key, item1, 20, Nonce{0x0B})

	if err := f.house.EndRound(sellerID, custodianID, key, []Hash{item1}, 0, 0, 0); err != nil {
		t.Fatalf("reset 2: %v", err)
	}

	f.clock.advance(2*period + 1)
	if err := f.house.EndRound(sellerID, custodianID, key, []Hash{item1}, 0, 0, 0); err != nil {
		t.Fatalf("settle: %v", err)
	}

	if f.owner(item1) != bidderB {
		t.Error("item should go to the later, higher bidder")
	}

	if got := f.balance(sellerID); got != 20 {
		t.Errorf("seller should be paid 20, got %d", got)
	}

	// A lost: full collateral withdrawable.
	if err := f.house.WithdrawCollateral(bidderA, custodianID, key, 1, item1); err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	if got := f.balance(bidderA); got != 50 {
		t.Errorf("bidder A should be whole again, got %d", got)
	}

	f.checkConservation()
}
