// Package babyjub implements the Baby Jubjub twisted-Edwards group (spec §4.1): the curve
// embedded in BN254's scalar field that ElGamal ciphertexts and new-key nullifier proofs
// operate over. We build it directly on gnark-crypto's own BN254-embedded twisted Edwards
// curve (github.com/consensys/gnark-crypto/ecc/bn254/twistededwards) — the same curve
// family, base point (Base8, the standard generator times cofactor 8), and subgroup order
// zk-kit's Baby Jubjub uses — rather than hand-rolling curve arithmetic.
package babyjub

import (
	"math/big"

	tedwards "github.com/consensys/gnark-crypto/ecc/bn254/twistededwards"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

var curve = tedwards.GetEdwardsCurve()

// PubKey is a point on the Baby Jubjub curve, represented by its (x, y) affine coordinates
// reduced mod the BN254 scalar field (spec's Fq, numerically identical to Fr).
type PubKey struct {
	X, Y *big.Int
}

// Identity is the curve's neutral element, encoded (0, 1) per spec §3, forbidden as a
// ciphertext public key.
func Identity() PubKey {
	return PubKey{X: big.NewInt(0), Y: big.NewInt(1)}
}

// IsIdentity reports whether p is the (0, 1) identity encoding.
func (p PubKey) IsIdentity() bool {
	return p.X.Sign() == 0 && p.Y.Cmp(big.NewInt(1)) == 0
}

// Base8 is the standard Baby Jubjub generator (the base point times cofactor 8).
func Base8() PubKey {
	return toPubKey(curve.Base)
}

func toPoint(p PubKey) tedwards.PointAffine {
	var pt tedwards.PointAffine
	pt.X.SetBigInt(p.X)
	pt.Y.SetBigInt(p.Y)
	return pt
}

func toPubKey(pt tedwards.PointAffine) PubKey {
	var x, y big.Int
	pt.X.BigInt(&x)
	pt.Y.BigInt(&y)
	return PubKey{X: &x, Y: &y}
}

// Add computes the Baby Jubjub group addition a + b.
func Add(a, b PubKey) PubKey {
	pa, pb := toPoint(a), toPoint(b)
	var out tedwards.PointAffine
	out.Add(&curve, &pa, &pb)
	return toPubKey(out)
}

// Neg computes the additive inverse of p.
func Neg(p PubKey) PubKey {
	pt := toPoint(p)
	var out tedwards.PointAffine
	out.Neg(&pt)
	return toPubKey(out)
}

// ScalarMul computes p scaled by k, an Fr-sized scalar (reduced mod the subgroup order by
// the underlying implementation).
func ScalarMul(p PubKey, k *big.Int) PubKey {
	pt := toPoint(p)
	var out tedwards.PointAffine
	out.ScalarMultiplication(&curve, &pt, k)
	return toPubKey(out)
}

// Base8Mul computes Base8 * k, the standard "derive a public key from a formatted private
// scalar" operation.
func Base8Mul(k *big.Int) PubKey {
	return ScalarMul(Base8(), k)
}

// IsOnCurve reports whether p satisfies the twisted Edwards curve equation.
func IsOnCurve(p PubKey) bool {
	pt := toPoint(p)
	return pt.IsOnCurve(&curve)
}

// Equal reports whether a and b denote the same point.
func Equal(a, b PubKey) bool {
	return a.X.Cmp(b.X) == 0 && a.Y.Cmp(b.Y) == 0
}

// SubgroupOrder returns the Baby Jubjub subgroup order (rBJ in spec notation).
func SubgroupOrder() *big.Int {
	order := new(big.Int).Set(&curve.Order)
	return order
}

// FormatPrivKey implements the canonical Pedersen-bit clamp zk-kit uses to derive a Baby
// Jubjub scalar from an arbitrary private-key seed: clear the low 3 bits, set bit 254, clear
// bits above 254, then reduce modulo the subgroup order. sk must be a 32-byte little-endian
// seed (as produced by, e.g., a Pedersen-hash-derived key or raw random bytes).
func FormatPrivKey(sk []byte) *big.Int {
	buf := make([]byte, 32)
	copy(buf, sk)
	if len(sk) > 32 {
		copy(buf, sk[:32])
	}

	buf[0] &= 0xF8
	buf[31] &= 0x7F
	buf[31] |= 0x40

	// buf is little-endian; interpret accordingly.
	le := make([]byte, len(buf))
	for i, b := range buf {
		le[len(buf)-1-i] = b
	}
	k := new(big.Int).SetBytes(le)
	return k.Mod(k, SubgroupOrder())
}

// PubKeyFromPrivKey derives the Baby Jubjub public key for a raw private-key seed:
// Base8 * FormatPrivKey(sk).
func PubKeyFromPrivKey(sk []byte) PubKey {
	return Base8Mul(FormatPrivKey(sk))
}

// frModulus exposes the scalar field modulus the curve's base field coincides with, used by
// callers that need to validate coordinates are < p without importing fr directly.
func frModulus() *big.Int {
	return fr.Modulus()
}

// Modulus is the field Baby Jubjub coordinates live in (spec's Fq, == BN254's Fr).
var Modulus = frModulus()
