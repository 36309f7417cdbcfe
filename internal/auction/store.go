package auction

import (
	"encoding/binary"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"SealBid/internal/storage"
)

// Pebble key prefixes for auction-house records.
var (
	// PrefixAuction precedes registry keys: "a:" + custodian + itemSetKey.
	PrefixAuction = []byte("a:")

	// PrefixBid precedes ledger keys:
	// "b:" + custodian + itemSetKey + round_u64_BE + item + bidder.
	// Big-endian round keeps a round's bids contiguous under prefix scans.
	PrefixBid = []byte("b:")
)

// Store persists Auction and Bid records in Pebble, CBOR-encoded.
type Store struct {
	db *storage.Storage // db is the underlying Pebble storage
}

// NewStore creates a store backed by the given storage.
func NewStore(db *storage.Storage) *Store {
	return &Store{db: db}
}

// AuctionKey builds the registry key for (custodian, itemSetKey).
func AuctionKey(custodian, itemSetKey Hash) []byte {
	key := make([]byte, 0, len(PrefixAuction)+64)
	key = append(key, PrefixAuction...)
	key = append(key, custodian[:]...)
	key = append(key, itemSetKey[:]...)

	return key
}

// BidKey builds the ledger key for one bid slot.
func BidKey(custodian, itemSetKey Hash, round uint64, item, bidder Hash) []byte {
	key := make([]byte, 0, len(PrefixBid)+64+8+64)
	key = append(key, PrefixBid...)
	key = append(key, custodian[:]...)
	key = append(key, itemSetKey[:]...)
	key = binary.BigEndian.AppendUint64(key, round)
	key = append(key, item[:]...)
	key = append(key, bidder[:]...)

	return key
}

// Auction loads the registry record, or nil if no auction exists yet.
func (s *Store) Auction(custodian, itemSetKey Hash) (*Auction, error) {
	value, err := s.db.Get(AuctionKey(custodian, itemSetKey))
	if err != nil {
		return nil, fmt.Errorf("load auction:\n%w", err)
	}

	if value == nil {
		return nil, nil
	}

	var a Auction
	if err := cbor.Unmarshal(value, &a); err != nil {
		return nil, fmt.Errorf("decode auction:\n%w", err)
	}

	return &a, nil
}

// Bid loads a ledger record. An absent slot decodes as the zero Bid,
// which behaves as "never committed, no collateral".
func (s *Store) Bid(custodian, itemSetKey Hash, round uint64, item, bidder Hash) (*Bid, error) {
	value, err := s.db.Get(BidKey(custodian, itemSetKey, round, item, bidder))
	if err != nil {
		return nil, fmt.Errorf("load bid:\n%w", err)
	}

	if value == nil {
		return &Bid{}, nil
	}

	var b Bid
	if err := cbor.Unmarshal(value, &b); err != nil {
		return nil, fmt.Errorf("decode bid:\n%w", err)
	}

	return &b, nil
}

// AuctionPair encodes a registry record as a batch mutation.
func AuctionPair(custodian, itemSetKey Hash, a *Auction) (storage.KeyValue, error) {
	value, err := cbor.Marshal(a)
	if err != nil {
		return storage.KeyValue{}, fmt.Errorf("encode auction:\n%w", err)
	}

	return storage.KeyValue{Key: AuctionKey(custodian, itemSetKey), Value: value}, nil
}

// BidPair encodes a ledger record as a batch mutation.
func BidPair(custodian, itemSetKey Hash, round uint64, item, bidder Hash, b *Bid) (storage.KeyValue, error) {
	value, err := cbor.Marshal(b)
	if err != nil {
		return storage.KeyValue{}, fmt.Errorf("encode bid:\n%w", err)
	}

	return storage.KeyValue{Key: BidKey(custodian, itemSetKey, round, item, bidder), Value: value}, nil
}

// Apply atomically commits a set of record mutations.
// Each public operation finishes its read-modify-write with exactly one Apply.
func (s *Store) Apply(pairs []storage.KeyValue) error {
	if err := s.db.Apply(pairs); err != nil {
		return fmt.Errorf("apply records:\n%w", err)
	}

	return nil
}

// restore rewrites the registry slot to a previous record, or deletes the
// slot when prev is nil. Used to unwind a creation whose custody transfers
// failed partway.
func (s *Store) restore(custodian, itemSetKey Hash, prev *Auction) error {
	key := AuctionKey(custodian, itemSetKey)

	if prev == nil {
		return s.db.Delete(key)
	}

	value, err := cbor.Marshal(prev)
	if err != nil {
		return fmt.Errorf("encode auction:\n%w", err)
	}

	return s.db.Set(key, value)
}
