package auction

import (
	"github.com/google/uuid"

	"SealBid/internal/logger"
)

// AuctionCreated carries all creation parameters for observers.
type AuctionCreated struct {
	EventID      string // EventID is a unique identifier for the emission
	Custodian    Hash
	ItemSetKey   Hash
	Seller       Hash
	Items        []Hash
	StartTime    uint64
	BidPeriod    uint64
	RevealPeriod uint64
	ReservePrice uint64
	Round        uint64
}

// RevealCompleted carries the opened commitment for observers.
type RevealCompleted struct {
	EventID    string
	Custodian  Hash
	ItemSetKey Hash
	Item       Hash
	Commitment Hash
	Bidder     Hash
	Nonce      Nonce
	Value      uint64
}

// Notifier receives auction-house notifications.
// Notifications are observability only; nothing in the house consumes them.
type Notifier interface {
	AuctionCreated(ev AuctionCreated)
	RevealCompleted(ev RevealCompleted)
}

// newEventID returns a fresh notification identifier.
func newEventID() string {
	return uuid.NewString()
}

// LogNotifier writes notifications to the process log.
type LogNotifier struct{}

// AuctionCreated logs the creation event.
func (LogNotifier) AuctionCreated(ev AuctionCreated) {
	logger.Info("auction created",
		"event", ev.EventID,
		"custodian", shortHash(ev.Custodian),
		"key", shortHash(ev.ItemSetKey),
		"seller", shortHash(ev.Seller),
		"items", len(ev.Items),
		"start", ev.StartTime,
		"bid_period", ev.BidPeriod,
		"reveal_period", ev.RevealPeriod,
		"reserve", ev.ReservePrice,
		"round", ev.Round,
	)
}

// RevealCompleted logs the reveal event.
func (LogNotifier) RevealCompleted(ev RevealCompleted) {
	logger.Info("bid revealed",
		"event", ev.EventID,
		"custodian", shortHash(ev.Custodian),
		"key", shortHash(ev.ItemSetKey),
		"item", shortHash(ev.Item),
		"bidder", shortHash(ev.Bidder),
		"value", ev.Value,
	)
}

// shortHash returns the leading bytes of a hash for log lines.
func shortHash(h Hash) []byte {
	return h[:4]
}
