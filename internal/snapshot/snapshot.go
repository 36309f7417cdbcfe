// Package snapshot exports and imports the auction-house state: registry,
// bid ledger, custody and balance records. Payloads are CBOR-encoded,
// blake3-checksummed and zstd-compressed.
package snapshot

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"SealBid/internal/storage"
)

const (
	// formatVersion is the current snapshot format version.
	formatVersion = 1
)

// prefixes lists the record namespaces included in a snapshot.
var prefixes = [][]byte{
	[]byte("a:"), // auction registry
	[]byte("b:"), // bid ledger
	[]byte("o:"), // custody ownership
	[]byte("f:"), // fund balances
}

// Entry is one stored record.
type Entry struct {
	Key   []byte
	Value []byte
}

// Snapshot is the serialized state container.
type Snapshot struct {
	Version  uint32
	Checksum [32]byte // blake3 over the sorted entries
	Entries  []Entry
}

// Manager binds snapshot operations to one storage instance.
type Manager struct {
	db *storage.Storage
}

// NewManager creates a snapshot manager over the given storage.
func NewManager(db *storage.Storage) *Manager {
	return &Manager{db: db}
}

// Export produces a snapshot blob of the current state.
func (m *Manager) Export() ([]byte, error) {
	return Export(m.db)
}

// Import restores state from a snapshot blob.
func (m *Manager) Import(data []byte) error {
	return Import(m.db, data)
}

// Export collects all auction-house records into a compressed snapshot blob.
func Export(db *storage.Storage) ([]byte, error) {
	entries, err := collectEntries(db)
	if err != nil {
		return nil, fmt.Errorf("collect entries:\n%w", err)
	}

	sortEntries(entries)

	snap := Snapshot{
		Version:  formatVersion,
		Checksum: checksum(entries),
		Entries:  entries,
	}

	encoded, err := cbor.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot:\n%w", err)
	}

	return compress(encoded)
}

// Import restores records from a snapshot blob into storage.
// The checksum must match or nothing is written.
func Import(db *storage.Storage, data []byte) error {
	encoded, err := decompress(data)
	if err != nil {
		return fmt.Errorf("decompress snapshot:\n%w", err)
	}

	var snap Snapshot
	if err := cbor.Unmarshal(encoded, &snap); err != nil {
		return fmt.Errorf("decode snapshot:\n%w", err)
	}

	if snap.Version != formatVersion {
		return fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}

	sortEntries(snap.Entries)

	if checksum(snap.Entries) != snap.Checksum {
		return fmt.Errorf("snapshot checksum mismatch")
	}

	pairs := make([]storage.KeyValue, len(snap.Entries))
	for i, entry := range snap.Entries {
		pairs[i] = storage.KeyValue{Key: entry.Key, Value: entry.Value}
	}

	return db.Apply(pairs)
}

// collectEntries iterates the snapshot prefixes and copies every record.
func collectEntries(db *storage.Storage) ([]Entry, error) {
	var entries []Entry

	for _, prefix := range prefixes {
		err := db.IteratePrefix(prefix, func(key, value []byte) error {
			// Copy key and value to avoid iterator invalidation
			keyCopy := make([]byte, len(key))
			copy(keyCopy, key)

			valueCopy := make([]byte, len(value))
			copy(valueCopy, value)

			entries = append(entries, Entry{Key: keyCopy, Value: valueCopy})

			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return entries, nil
}

// sortEntries orders entries by key for a deterministic checksum.
func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i].Key, entries[j].Key) < 0
	})
}

// checksum computes blake3 over the sorted entry list.
func checksum(entries []Entry) [32]byte {
	hasher := blake3.New()

	for _, entry := range entries {
		_, _ = hasher.Write(entry.Key)
		_, _ = hasher.Write(entry.Value)
	}

	var sum [32]byte
	copy(sum[:], hasher.Sum(nil))

	return sum
}

// compress applies zstd at the default speed level.
func compress(data []byte) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	defer encoder.Close()

	return encoder.EncodeAll(data, nil), nil
}

// decompress reverses compress.
func decompress(data []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer decoder.Close()

	return decoder.DecodeAll(data, nil)
}
