package commit

import "testing"

// TestCommitmentRoundTrip verifies an opening always verifies against the
// commitment it produced.
func TestCommitmentRoundTrip(t *testing.T) {
	nonce := Nonce{0x01, 0x02}
	custodian := Hash{0xAA}
	key := Hash{0xBB}
	item := Hash{0xCC}

	sealed := Commitment(nonce, 1500, custodian, key, item, 3)

	computed, ok := Verify(sealed, nonce, 1500, custodian, key, item, 3)
	if !ok {
		t.Fatal("opening should verify")
	}

	if computed != sealed {
		t.Errorf("computed %x, want %x", computed, sealed)
	}
}

// TestCommitmentAlteredInputs verifies that changing any single input
// breaks verification.
func TestCommitmentAlteredInputs(t *testing.T) {
	nonce := Nonce{0x01}
	custodian := Hash{0xAA}
	key := Hash{0xBB}
	item := Hash{0xCC}

	sealed := Commitment(nonce, 1500, custodian, key, item, 3)

	cases := []struct {
		name      string
		nonce     Nonce
		value     uint64
		custodian Hash
		key       Hash
		item      Hash
		round     uint64
	}{
		{"nonce", Nonce{0x02}, 1500, custodian, key, item, 3},
		{"value", nonce, 1501, custodian, key, item, 3},
		{"custodian", nonce, 1500, Hash{0xAB}, key, item, 3},
		{"key", nonce, 1500, custodian, Hash{0xBC}, item, 3},
		{"item", nonce, 1500, custodian, key, Hash{0xCD}, 3},
		{"round", nonce, 1500, custodian, key, item, 4},
	}

	for _, tc := range cases {
		if _, ok := Verify(sealed, tc.nonce, tc.value, tc.custodian, tc.key, tc.item, tc.round); ok {
			t.Errorf("altered %s should not verify", tc.name)
		}
	}
}

// TestCommitmentNonZero verifies real commitments never hit the sentinel.
func TestCommitmentNonZero(t *testing.T) {
	sealed := Commitment(Nonce{}, 0, Hash{}, Hash{}, Hash{}, 0)
	if sealed == Zero {
		t.Fatal("commitment collided with the zero sentinel")
	}
}

// TestItemSetKeyDeterministic verifies same list, same key.
func TestItemSetKeyDeterministic(t *testing.T) {
	items := []Hash{{0x01}, {0x02}, {0x03}}

	if ItemSetKey(items) != ItemSetKey(items) {
		t.Error("same list should derive the same key")
	}
}

// TestItemSetKeyOrderSensitive verifies reordering changes the key.
func TestItemSetKeyOrderSensitive(t *testing.T) {
	a := ItemSetKey([]Hash{{0x01}, {0x02}})
	b := ItemSetKey([]Hash{{0x02}, {0x01}})

	if a == b {
		t.Error("reordered list should derive a different key")
	}
}

// TestItemSetKeyDistinct verifies different sets derive different keys.
func TestItemSetKeyDistinct(t *testing.T) {
	a := ItemSetKey([]Hash{{0x01}})
	b := ItemSetKey([]Hash{{0x01}, {0x02}})

	if a == b {
		t.Error("different sets should derive different keys")
	}
}
