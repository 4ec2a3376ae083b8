package round

import (
	"math/big"
	"testing"
)

// TestPackUnpackRoundTrip confirms PackElement/UnpackElement recover the four packed fields
// (spec §8's pack/unpack round-trip testable property), grounded on pack.rs's own pack/unpack
// test vectors.
func TestPackUnpackRoundTrip(t *testing.T) {
	nonce := big.NewInt(7)
	stateIdx := big.NewInt(42)
	voIdx := big.NewInt(3)
	newVotes := big.NewInt(100)
	salt := big.NewInt(123456789)

	packed := PackElement(nonce, stateIdx, voIdx, newVotes, salt)
	got := UnpackElement(packed)

	if got.Nonce.Cmp(nonce) != 0 {
		t.Fatalf("nonce: got %s want %s", got.Nonce, nonce)
	}
	if got.StateIdx.Cmp(stateIdx) != 0 {
		t.Fatalf("stateIdx: got %s want %s", got.StateIdx, stateIdx)
	}
	if got.VoIdx.Cmp(voIdx) != 0 {
		t.Fatalf("voIdx: got %s want %s", got.VoIdx, voIdx)
	}
	if got.NewVotes.Cmp(newVotes) != 0 {
		t.Fatalf("newVotes: got %s want %s", got.NewVotes, newVotes)
	}
}

// TestPackUnpackZeroFields confirms an all-zero packing unpacks to all-zero fields, the
// degenerate case at the boundary of each 32/96-bit field width.
func TestPackUnpackZeroFields(t *testing.T) {
	zero := big.NewInt(0)
	packed := PackElement(zero, zero, zero, zero, zero)
	if packed.Sign() != 0 {
		t.Fatalf("expected zero-field packing to be zero, got %s", packed)
	}
	got := UnpackElement(packed)
	for name, v := range map[string]*big.Int{
		"nonce": got.Nonce, "stateIdx": got.StateIdx, "voIdx": got.VoIdx, "newVotes": got.NewVotes,
	} {
		if v.Sign() != 0 {
			t.Fatalf("%s: expected 0, got %s", name, v)
		}
	}
}

// TestPackFieldsDoNotOverlap confirms each field occupies its own bit window and does not
// bleed into neighboring fields when packed together.
func TestPackFieldsDoNotOverlap(t *testing.T) {
	packed := PackElement(big.NewInt(1), big.NewInt(1), big.NewInt(1), big.NewInt(1), big.NewInt(0))
	got := UnpackElement(packed)
	if got.Nonce.Cmp(big.NewInt(1)) != 0 || got.StateIdx.Cmp(big.NewInt(1)) != 0 ||
		got.VoIdx.Cmp(big.NewInt(1)) != 0 || got.NewVotes.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("expected each field to independently read back as 1, got %+v", got)
	}
}
