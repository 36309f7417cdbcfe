package storage

import (
	"bytes"
	"os"
	"testing"
)

// newTestStorage creates a temporary storage for testing.
func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	dir, err := os.MkdirTemp("", "storage_test_*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	t.Cleanup(func() {
		os.RemoveAll(dir)
	})

	db, err := New(dir)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func TestSetGet(t *testing.T) {
	db := newTestStorage(t)

	key := []byte("key1")
	value := []byte("value1")

	if err := db.Set(key, value); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := db.Get(key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if !bytes.Equal(got, value) {
		t.Errorf("expected %s, got %s", value, got)
	}
}

func TestGetMissing(t *testing.T) {
	db := newTestStorage(t)

	got, err := db.Get([]byte("missing"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if got != nil {
		t.Errorf("expected nil for missing key, got %s", got)
	}
}

func TestDelete(t *testing.T) {
	db := newTestStorage(t)

	key := []byte("key1")
	_ = db.Set(key, []byte("value"))

	if err := db.Delete(key); err != nil {
		t.Fatalf("delete: %v", err)
	}

	got, _ := db.Get(key)
	if got != nil {
		t.Error("expected nil after delete")
	}
}

func TestApply(t *testing.T) {
	db := newTestStorage(t)

	_ = db.Set([]byte("old"), []byte("data"))

	err := db.Apply([]KeyValue{
		{Key: []byte("k1"), Value: []byte("v1")},
		{Key: []byte("k2"), Value: []byte("v2")},
		{Key: []byte("old"), Value: nil}, // delete
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	got, _ := db.Get([]byte("k1"))
	if !bytes.Equal(got, []byte("v1")) {
		t.Errorf("k1: expected v1, got %s", got)
	}

	got, _ = db.Get([]byte("old"))
	if got != nil {
		t.Error("old key should be deleted by the batch")
	}
}

func TestIteratePrefix(t *testing.T) {
	db := newTestStorage(t)

	_ = db.Set([]byte("a:1"), []byte("x"))
	_ = db.Set([]byte("a:2"), []byte("y"))
	_ = db.Set([]byte("b:1"), []byte("z"))

	var keys []string
	err := db.IteratePrefix([]byte("a:"), func(key, value []byte) error {
		keys = append(keys, string(key))
		return nil
	})
	if err != nil {
		t.Fatalf("iterate: %v", err)
	}

	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %d: %v", len(keys), keys)
	}

	if keys[0] != "a:1" || keys[1] != "a:2" {
		t.Errorf("unexpected keys: %v", keys)
	}
}

// TestPrefixUpperBound verifies the exclusive bound computation.
func TestPrefixUpperBound(t *testing.T) {
	if got := prefixUpperBound([]byte("a:")); !bytes.Equal(got, []byte("a;")) {
		t.Errorf("expected a;, got %s", got)
	}

	if got := prefixUpperBound([]byte{0xFF, 0xFF}); got != nil {
		t.Errorf("all-0xFF prefix should be unbounded, got %v", got)
	}
}
