package api

import (
	"encoding/hex"
	"fmt"
	"net/http"
	"sort"

	"SealBid/internal/auction"
)

// parseHash decodes a 32-byte hex identifier.
func parseHash(s string) (Hash, error) {
	var h Hash

	raw, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("invalid hex: %v", err)
	}

	if len(raw) != len(h) {
		return h, fmt.Errorf("expected %d bytes, got %d", len(h), len(raw))
	}

	copy(h[:], raw)

	return h, nil
}

// parseNonce decodes a 32-byte hex nonce.
func parseNonce(s string) (auction.Nonce, error) {
	h, err := parseHash(s)
	return auction.Nonce(h), err
}

// parseHashList decodes an ordered list of hex identifiers.
func parseHashList(values []string) ([]Hash, error) {
	hashes := make([]Hash, len(values))

	for i, v := range values {
		h, err := parseHash(v)
		if err != nil {
			return nil, fmt.Errorf("item %d: %v", i, err)
		}

		hashes[i] = h
	}

	return hashes, nil
}

// parseParties decodes the caller, custodian and item list shared by the
// creation and round-end endpoints. Writes an error response on failure.
func parseParties(w http.ResponseWriter, caller, custodian string, items []string) (Hash, Hash, []Hash, bool) {
	callerHash, err := parseHash(caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("caller: %v", err))
		return Hash{}, Hash{}, nil, false
	}

	custodianHash, err := parseHash(custodian)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("custodian: %v", err))
		return Hash{}, Hash{}, nil, false
	}

	itemHashes, err := parseHashList(items)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("items: %v", err))
		return Hash{}, Hash{}, nil, false
	}

	return callerHash, custodianHash, itemHashes, true
}

// parseHashFields decodes a set of named hex fields.
// Writes an error response and returns false on the first failure.
func parseHashFields(w http.ResponseWriter, fields map[string]string) (map[string]Hash, bool) {
	parsed := make(map[string]Hash, len(fields))

	for name, value := range fields {
		h, err := parseHash(value)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("%s: %v", name, err))
			return nil, false
		}

		parsed[name] = h
	}

	return parsed, true
}

// auctionDTO is the JSON shape of an auction snapshot.
type auctionDTO struct {
	Seller       string     `json:"seller"`
	StartTime    uint64     `json:"start_time"`
	EndOfBidding uint64     `json:"end_of_bidding"`
	EndOfReveal  uint64     `json:"end_of_reveal"`
	BidPeriod    uint64     `json:"bid_period"`
	RevealPeriod uint64     `json:"reveal_period"`
	ReservePrice uint64     `json:"reserve_price"`
	RoundIndex   uint64     `json:"round_index"`
	Unrevealed   uint64     `json:"unrevealed"`
	Settled      bool       `json:"settled"`
	Standings    []standing `json:"standings"`
}

// standing is the per-item leader entry of an auction snapshot.
type standing struct {
	Item          string `json:"item"`
	HighestBid    uint64 `json:"highest_bid"`
	HighestBidder string `json:"highest_bidder,omitempty"`
}

// toAuctionDTO converts a snapshot to its JSON shape.
func toAuctionDTO(a *auction.Auction) auctionDTO {
	dto := auctionDTO{
		Seller:       hex.EncodeToString(a.Seller[:]),
		StartTime:    a.StartTime,
		EndOfBidding: a.EndOfBidding,
		EndOfReveal:  a.EndOfReveal,
		BidPeriod:    a.BidPeriod,
		RevealPeriod: a.RevealPeriod,
		ReservePrice: a.ReservePrice,
		RoundIndex:   a.RoundIndex,
		Unrevealed:   a.Unrevealed,
		Settled:      a.Settled,
	}

	for item, bid := range a.HighestBid {
		entry := standing{
			Item:       hex.EncodeToString(item[:]),
			HighestBid: bid,
		}

		if bidder, ok := a.HighestBidder[item]; ok {
			entry.HighestBidder = hex.EncodeToString(bidder[:])
		}

		dto.Standings = append(dto.Standings, entry)
	}

	// Map iteration is randomized; keep the response deterministic.
	sort.Slice(dto.Standings, func(i, j int) bool {
		return dto.Standings[i].Item < dto.Standings[j].Item
	})

	return dto
}
