// Package funds is the reference payment rail: durable native-value
// balances with an escrow adapter the auction house pays through.
package funds

import (
	"encoding/binary"
	"errors"
	"fmt"

	"SealBid/internal/commit"
	"SealBid/internal/storage"
)

// keyPrefix precedes balance keys: "f:" + account.
var keyPrefix = []byte("f:")

// ErrInsufficientFunds reports a debit larger than the account balance.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Hash is the 32-byte account identity shared with the commit package.
type Hash = commit.Hash

// Bank stores account balances in Pebble.
type Bank struct {
	db *storage.Storage // db is the underlying Pebble storage
}

// NewBank creates a bank backed by the given storage.
func NewBank(db *storage.Storage) *Bank {
	return &Bank{db: db}
}

// Balance returns the current balance of an account. Absent accounts are zero.
func (b *Bank) Balance(account Hash) (uint64, error) {
	value, err := b.db.Get(makeKey(account))
	if err != nil {
		return 0, fmt.Errorf("load balance:\n%w", err)
	}

	if len(value) != 8 {
		return 0, nil
	}

	return binary.LittleEndian.Uint64(value), nil
}

// Mint credits an account out of thin air. Bootstrap and test use only.
func (b *Bank) Mint(account Hash, amount uint64) error {
	balance, err := b.Balance(account)
	if err != nil {
		return err
	}

	return b.setBalance(account, balance+amount)
}

// Transfer moves amount between two accounts, atomically.
func (b *Bank) Transfer(from, to Hash, amount uint64) error {
	if amount == 0 {
		return nil
	}

	fromBalance, err := b.Balance(from)
	if err != nil {
		return err
	}

	if fromBalance < amount {
		return fmt.Errorf("%w: balance %d, need %d", ErrInsufficientFunds, fromBalance, amount)
	}

	toBalance, err := b.Balance(to)
	if err != nil {
		return err
	}

	// Self-transfer would double-apply without this.
	if from == to {
		return nil
	}

	return b.db.Apply([]storage.KeyValue{
		{Key: makeKey(from), Value: encodeBalance(fromBalance - amount)},
		{Key: makeKey(to), Value: encodeBalance(toBalance + amount)},
	})
}

// setBalance writes an account balance.
func (b *Bank) setBalance(account Hash, balance uint64) error {
	return b.db.Set(makeKey(account), encodeBalance(balance))
}

// encodeBalance serializes a balance as 8 bytes little-endian.
func encodeBalance(balance uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, balance)

	return buf
}

// makeKey builds the balance key: "f:" + account.
func makeKey(account Hash) []byte {
	key := make([]byte, 0, len(keyPrefix)+32)
	key = append(key, keyPrefix...)
	key = append(key, account[:]...)

	return key
}

// Escrow binds a Bank to the house account, satisfying the auction
// house's Payment interface.
type Escrow struct {
	bank  *Bank
	house Hash
}

// NewEscrow creates an escrow adapter over the bank.
func NewEscrow(bank *Bank, house Hash) *Escrow {
	return &Escrow{bank: bank, house: house}
}

// Pay sends amount from the escrow to the recipient.
func (e *Escrow) Pay(to Hash, amount uint64) error {
	return e.bank.Transfer(e.house, to, amount)
}

// Collect pulls amount from the payer into the escrow.
func (e *Escrow) Collect(from Hash, amount uint64) error {
	return e.bank.Transfer(from, e.house, amount)
}
