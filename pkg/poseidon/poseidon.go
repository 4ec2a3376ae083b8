// Package poseidon wraps the zk-kit-compatible Poseidon sponge used throughout the core:
// state-leaf hashing, the quinary Merkle tree, and message-chain hashing all reduce to
// Hash2/Hash5 calls over Fr. We delegate to go-iden3-crypto's poseidon implementation,
// which carries the same round constants and MDS matrices circomlib/zk-kit ship, since no
// example in this pack provides a native (out-of-circuit) Poseidon — gnark's is an
// in-circuit gadget only and is not bit-compatible with values this verifier must reproduce.
package poseidon

import (
	"math/big"

	iden3poseidon "github.com/iden3/go-iden3-crypto/poseidon"
)

// Hash2 computes the arity-2 Poseidon sponge over (a, b).
func Hash2(a, b *big.Int) *big.Int {
	out, err := iden3poseidon.Hash([]*big.Int{a, b})
	if err != nil {
		// Hash only fails on inputs outside the supported arity range (1..16) or
		// out-of-field elements; callers are expected to pass reduced Fr elements.
		panic("poseidon: Hash2: " + err.Error())
	}
	return out
}

// Hash5 computes the arity-5 Poseidon sponge over in[0..5), used for StateLeaf hashing and
// quinary Merkle tree node recomputation.
func Hash5(in [5]*big.Int) *big.Int {
	out, err := iden3poseidon.Hash(in[:])
	if err != nil {
		panic("poseidon: Hash5: " + err.Error())
	}
	return out
}

// HashN computes the Poseidon sponge over an arbitrary (1..16 element) input slice. Used by
// the new-key/deactivate leaf hasher, which folds a StateLeaf's five fields together with a
// 4-element commitment (nine inputs); the plain StateLeaf hash uses Hash5.
func HashN(in []*big.Int) *big.Int {
	out, err := iden3poseidon.Hash(in)
	if err != nil {
		panic("poseidon: HashN: " + err.Error())
	}
	return out
}
