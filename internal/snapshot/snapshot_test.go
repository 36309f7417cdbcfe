package snapshot

import (
	"bytes"
	"os"
	"testing"

	"github.com/fxamacker/cbor/v2"

	"SealBid/internal/storage"
)

// newTestStorage creates a temporary storage for testing.
func newTestStorage(t *testing.T) *storage.Storage {
	t.Helper()

	dir, err := os.MkdirTemp("", "snapshot_test_*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	t.Cleanup(func() {
		os.RemoveAll(dir)
	})

	db, err := storage.New(dir)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func TestExportImportRoundTrip(t *testing.T) {
	src := newTestStorage(t)

	records := map[string]string{
		"a:auction1": "auction-record",
		"b:bid1":     "bid-record",
		"o:asset1":   "owner-record",
		"f:account1": "balance-record",
	}

	for k, v := range records {
		if err := src.Set([]byte(k), []byte(v)); err != nil {
			t.Fatalf("set: %v", err)
		}
	}

	// Records outside the snapshot prefixes stay behind.
	_ = src.Set([]byte("x:other"), []byte("ignored"))

	blob, err := Export(src)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	dst := newTestStorage(t)
	if err := Import(dst, blob); err != nil {
		t.Fatalf("import: %v", err)
	}

	for k, v := range records {
		got, err := dst.Get([]byte(k))
		if err != nil {
			t.Fatalf("get %s: %v", k, err)
		}

		if !bytes.Equal(got, []byte(v)) {
			t.Errorf("%s: expected %s, got %s", k, v, got)
		}
	}

	got, _ := dst.Get([]byte("x:other"))
	if got != nil {
		t.Error("out-of-scope record should not travel")
	}
}

func TestExportEmpty(t *testing.T) {
	src := newTestStorage(t)

	blob, err := Export(src)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	dst := newTestStorage(t)
	if err := Import(dst, blob); err != nil {
		t.Fatalf("import empty snapshot: %v", err)
	}
}

func TestImportCorruptedPayload(t *testing.T) {
	src := newTestStorage(t)
	_ = src.Set([]byte("a:1"), []byte("record"))

	blob, err := Export(src)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	// Truncation breaks the zstd frame.
	dst := newTestStorage(t)
	if err := Import(dst, blob[:len(blob)/2]); err == nil {
		t.Error("truncated blob should be rejected")
	}

	if err := Import(dst, []byte("not a snapshot")); err == nil {
		t.Error("garbage blob should be rejected")
	}
}

func TestImportChecksumMismatch(t *testing.T) {
	src := newTestStorage(t)
	_ = src.Set([]byte("a:1"), []byte("record"))

	entries, err := collectEntries(src)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}

	blob := encodeSnapshot(t, Snapshot{
		Version:  formatVersion,
		Checksum: [32]byte{0xBA, 0xD0}, // wrong on purpose
		Entries:  entries,
	})

	dst := newTestStorage(t)
	if err := Import(dst, blob); err == nil {
		t.Fatal("checksum mismatch should be rejected")
	}

	// Nothing may have been written.
	got, _ := dst.Get([]byte("a:1"))
	if got != nil {
		t.Error("rejected import must not write records")
	}
}

func TestImportUnsupportedVersion(t *testing.T) {
	blob := encodeSnapshot(t, Snapshot{Version: formatVersion + 1})

	dst := newTestStorage(t)
	if err := Import(dst, blob); err == nil {
		t.Error("future version should be rejected")
	}
}

// encodeSnapshot builds a compressed blob from a raw snapshot value.
func encodeSnapshot(t *testing.T, snap Snapshot) []byte {
	t.Helper()

	encoded, err := cbor.Marshal(snap)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	blob, err := compress(encoded)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}

	return blob
}
