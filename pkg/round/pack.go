package round

import "math/big"

// PackedElement is the decomposed form of a packed message-chain scalar (spec §4.3):
// nonce + (state_idx << 32) + (vo_idx << 64) + (new_votes << 96) [+ (salt << 192) when
// packing]. Grounded directly on original_source/crates/maci-crypto/src/pack.rs.
type PackedElement struct {
	Nonce     *big.Int
	StateIdx  *big.Int
	VoIdx     *big.Int
	NewVotes  *big.Int
	Salt      *big.Int // never populated: PackElement returns a bare scalar and UnpackElement does not read salt
}

var (
	uint32Mod = new(big.Int).Lsh(big.NewInt(1), 32)
	uint96Mod = new(big.Int).Lsh(big.NewInt(1), 96)
)

// PackElement packs the message-chain fields into a single field element. salt defaults to
// the caller-supplied value; unlike the reference implementation's test helper, this
// package never generates salt itself — callers that need message-chain randomness supply
// it explicitly so encoding stays deterministic and testable.
func PackElement(nonce, stateIdx, voIdx, newVotes, salt *big.Int) *big.Int {
	packed := new(big.Int).Set(nonce)
	packed.Add(packed, new(big.Int).Lsh(stateIdx, 32))
	packed.Add(packed, new(big.Int).Lsh(voIdx, 64))
	packed.Add(packed, new(big.Int).Lsh(newVotes, 96))
	packed.Add(packed, new(big.Int).Lsh(salt, 192))
	return packed
}

// UnpackElement recovers nonce, state_idx, vo_idx, and new_votes from a packed element.
// Salt (the bits from 192 up) is not returned, matching the reference TypeScript/Rust
// implementations.
func UnpackElement(packed *big.Int) PackedElement {
	nonce := new(big.Int).Mod(packed, uint32Mod)
	stateIdx := new(big.Int).Mod(new(big.Int).Rsh(packed, 32), uint32Mod)
	voIdx := new(big.Int).Mod(new(big.Int).Rsh(packed, 64), uint32Mod)
	newVotes := new(big.Int).Mod(new(big.Int).Rsh(packed, 96), uint96Mod)
	return PackedElement{Nonce: nonce, StateIdx: stateIdx, VoIdx: voIdx, NewVotes: newVotes}
}
