package auction

import "errors"

// Every precondition violation aborts the whole operation with no state
// change. Callers resubmit after correcting the condition; there is no retry.
var (
	// ErrInvalidStartTime reports a supplied start time in the past.
	ErrInvalidStartTime = errors.New("start time is in the past")

	// ErrBidPeriodTooShort reports a bidding period below the minimum floor.
	ErrBidPeriodTooShort = errors.New("bid period too short")

	// ErrRevealPeriodTooShort reports a reveal period below the minimum floor.
	ErrRevealPeriodTooShort = errors.New("reveal period too short")

	// ErrNoItems reports a creation with an empty item list.
	ErrNoItems = errors.New("no items to auction")

	// ErrZeroCommitment reports the empty commitment sentinel on commit.
	ErrZeroCommitment = errors.New("commitment is zero")

	// ErrAlreadyLeading reports a commit on the slot backing the caller's
	// current winning position. The slot is frozen until settlement.
	ErrAlreadyLeading = errors.New("caller already holds the winning position")

	// ErrNotInBidPeriod reports a commit outside [start, endOfBidding].
	ErrNotInBidPeriod = errors.New("not in bid period")

	// ErrNotInRevealPeriod reports a reveal outside (endOfBidding, endOfReveal].
	ErrNotInRevealPeriod = errors.New("not in reveal period")

	// ErrInvalidOpening reports a (nonce, value) pair that does not hash
	// to the stored commitment.
	ErrInvalidOpening = errors.New("invalid opening")

	// ErrInvalidAuctionIndex reports a round index that does not exist.
	ErrInvalidAuctionIndex = errors.New("invalid auction index")

	// ErrBidPeriodOngoing reports a round end attempted during bidding.
	ErrBidPeriodOngoing = errors.New("bid period ongoing")

	// ErrRevealPeriodOngoing reports a round end attempted while unopened
	// commitments remain inside the reveal window.
	ErrRevealPeriodOngoing = errors.New("reveal period ongoing")

	// ErrNotRevealed reports a winning bid that was never opened.
	// Settlement treats this as fatal since the state is unreachable.
	ErrNotRevealed = errors.New("bid was not revealed")

	// ErrUnrevealedBid reports a withdrawal while a commitment is active.
	ErrUnrevealedBid = errors.New("bid has an active commitment")

	// ErrCannotWithdraw reports a withdrawal by the current highest bidder.
	ErrCannotWithdraw = errors.New("caller holds the winning position")

	// ErrWithdrawAfterReveal reports the before-reveal withdrawal path
	// attempted after a successful reveal.
	ErrWithdrawAfterReveal = errors.New("withdraw after reveal")

	// ErrReentrancy reports a guard violation: an operation re-entered
	// the house while another call was in flight.
	ErrReentrancy = errors.New("reentrant call")
)
