// Package custody is the reference asset-ownership service: a durable map
// from (custodian, asset) to owner. The auction house consumes it through
// its Custody interface; deployments with an external custodian plug in
// their own implementation instead.
package custody

import (
	"errors"
	"fmt"

	"SealBid/internal/commit"
	"SealBid/internal/storage"
)

// keyPrefix precedes ownership keys: "o:" + custodian + asset.
var keyPrefix = []byte("o:")

var (
	// ErrUnknownAsset reports an asset with no registered owner.
	ErrUnknownAsset = errors.New("unknown asset")

	// ErrNotOwner reports a transfer whose from-identity does not own the asset.
	ErrNotOwner = errors.New("sender does not own asset")
)

// Hash is the 32-byte identity and asset identifier shared with the
// commit package.
type Hash = commit.Hash

// Registry stores asset ownership in Pebble.
type Registry struct {
	db *storage.Storage // db is the underlying Pebble storage
}

// NewRegistry creates a registry backed by the given storage.
func NewRegistry(db *storage.Storage) *Registry {
	return &Registry{db: db}
}

// Register records the initial owner of an asset.
// Overwrites any previous owner; meant for minting and test setup.
func (r *Registry) Register(custodian, asset, owner Hash) error {
	return r.db.Set(makeKey(custodian, asset), owner[:])
}

// OwnerOf returns the current owner of an asset.
func (r *Registry) OwnerOf(custodian, asset Hash) (Hash, error) {
	value, err := r.db.Get(makeKey(custodian, asset))
	if err != nil {
		return Hash{}, fmt.Errorf("load owner:\n%w", err)
	}

	if len(value) != 32 {
		return Hash{}, fmt.Errorf("%w: %x", ErrUnknownAsset, asset[:8])
	}

	var owner Hash
	copy(owner[:], value)

	return owner, nil
}

// TransferOwnership moves an asset from one identity to another.
// Atomic per asset: the write happens only after the owner check passes.
func (r *Registry) TransferOwnership(custodian, asset, from, to Hash) error {
	owner, err := r.OwnerOf(custodian, asset)
	if err != nil {
		return err
	}

	if owner != from {
		return fmt.Errorf("%w: asset %x owned by %x", ErrNotOwner, asset[:8], owner[:8])
	}

	return r.db.Set(makeKey(custodian, asset), to[:])
}

// makeKey builds the ownership key: "o:" + custodian + asset.
func makeKey(custodian, asset Hash) []byte {
	key := make([]byte, 0, len(keyPrefix)+64)
	key = append(key, keyPrefix...)
	key = append(key, custodian[:]...)
	key = append(key, asset[:]...)

	return key
}
