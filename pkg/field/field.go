// Package field provides BN254 scalar-field helpers shared by the rest of the core:
// the snark scalar modulus, fixed-width byte encoding, and the Keccak-then-reduce
// public-input recipe every Groth16 circuit in this system is compiled against.
package field

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/ethereum/go-ethereum/crypto"
)

// Modulus is the BN254 scalar field ("snark scalar field") modulus, matching fr.Modulus().
var Modulus = fr.Modulus()

// InField reports whether x is a valid, reduced element of Fr (0 <= x < Modulus).
func InField(x *big.Int) bool {
	if x == nil || x.Sign() < 0 {
		return false
	}
	return x.Cmp(Modulus) < 0
}

// Reduce returns x mod Modulus as a new big.Int.
func Reduce(x *big.Int) *big.Int {
	r := new(big.Int).Mod(x, Modulus)
	return r
}

// ToBytes32 renders x as a 32-byte big-endian array (values must already fit; this does
// not reduce mod Modulus, only pads/truncates on the left).
func ToBytes32(x *big.Int) [32]byte {
	var out [32]byte
	if x == nil {
		return out
	}
	b := x.Bytes()
	if len(b) > 32 {
		b = b[len(b)-32:]
	}
	copy(out[32-len(b):], b)
	return out
}

// FromBytes32 parses a 32-byte big-endian array into a big.Int.
func FromBytes32(b [32]byte) *big.Int {
	return new(big.Int).SetBytes(b[:])
}

// PublicInput implements spec §4.5's single-public-input recipe: concatenate each value
// as a 32-byte big-endian word, Keccak256 the concatenation, then reduce the digest (read
// as a big-endian integer) modulo the scalar field. This exact recipe is a hard
// compatibility constraint — the circuits were compiled against it — so it must never be
// changed without also changing every circuit's verifying key.
func PublicInput(inputs []*big.Int) *big.Int {
	buf := make([]byte, 0, 32*len(inputs))
	for _, in := range inputs {
		b := ToBytes32(in)
		buf = append(buf, b[:]...)
	}
	digest := crypto.Keccak256(buf)
	h := new(big.Int).SetBytes(digest)
	return h.Mod(h, Modulus)
}
