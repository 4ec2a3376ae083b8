// Package elgamal implements the Baby-Jubjub ElGamal variant used to encrypt deactivation
// and new-key status flags (spec §4.4): encode/decode a scalar as a curve point's
// x-coordinate, encrypt/decrypt against a Baby Jubjub public key, rerandomize a ciphertext
// without decrypting it, and encode a single bit as message-point x-parity
// (encrypt_odevity) for the deactivate/reactivate status channel. Grounded directly on
// original_source/crates/maci-crypto/src/rerandomize.rs, the Rust reference this spec was
// distilled from.
package elgamal

import (
	"math/big"

	"github.com/dorafactory/amaci-core/pkg/babyjub"
	"github.com/dorafactory/amaci-core/pkg/field"
)

// Message is an encoded scalar: a Baby Jubjub point whose x-coordinate, minus xIncrement,
// recovers the original value.
type Message struct {
	Point      babyjub.PubKey
	XIncrement *big.Int
}

// Ciphertext is a Baby-Jubjub ElGamal ciphertext carrying the x-increment needed to decode
// the plaintext once the message point has been recovered.
type Ciphertext struct {
	C1         babyjub.PubKey
	C2         babyjub.PubKey
	XIncrement *big.Int
}

// seedToPubKey derives the ephemeral "random key" point used by EncodeToMessage, by
// clamping seed the same way a private-key scalar is clamped (spec's format_priv_key) and
// multiplying it onto Base8. seed need not itself be a valid clamped scalar; only the
// resulting point is used.
func seedToPubKey(seed *big.Int) babyjub.PubKey {
	return babyjub.PubKeyFromPrivKey(leBytes32(seed))
}

func leBytes32(x *big.Int) []byte {
	be := x.Bytes()
	buf := make([]byte, 32)
	n := len(be)
	if n > 32 {
		be = be[n-32:]
		n = 32
	}
	// be is big-endian; reverse into the low n bytes of buf, little-endian.
	for i := 0; i < n; i++ {
		buf[i] = be[n-1-i]
	}
	return buf
}

// EncodeToMessage converts v (which must be less than the field size) into a Message: a
// fresh point derived from seed, and the raw (non-subgroup-reduced) field difference
// between the point's x-coordinate and v. seed must be chosen such that the resulting
// point's x-coordinate exceeds v; this holds for all AMACI usages, where v is a small
// status/placeholder value and the point's x-coordinate is a near-full-width field element.
func EncodeToMessage(v, seed *big.Int) Message {
	point := seedToPubKey(seed)
	xIncrement := field.Reduce(new(big.Int).Sub(point.X, v))
	return Message{Point: point, XIncrement: xIncrement}
}

// DecodeMessage recovers the original value encoded in m: the raw field difference between
// the point's x-coordinate and the carried x-increment.
func DecodeMessage(m Message) *big.Int {
	return field.Reduce(new(big.Int).Sub(m.Point.X, m.XIncrement))
}

// Encrypt produces a ciphertext encrypting plaintext under pubKey, using randomVal as the
// ElGamal encryption randomness. The message point is derived from randomVal as well (as
// seed), so no second independent random key is drawn; plaintexts round-trip through
// Decrypt, but ciphertexts differ from the reference implementation's for the same inputs.
func Encrypt(plaintext *big.Int, pubKey babyjub.PubKey, randomVal *big.Int) Ciphertext {
	message := EncodeToMessage(plaintext, randomVal)

	c1 := babyjub.Base8Mul(randomVal)
	pky := babyjub.ScalarMul(pubKey, randomVal)
	c2 := babyjub.Add(message.Point, pky)

	return Ciphertext{C1: c1, C2: c2, XIncrement: message.XIncrement}
}

// placeholderPlaintext is the fixed dummy value encrypt_odevity encodes; only the
// resulting message point's x-coordinate parity carries meaning.
var placeholderPlaintext = big.NewInt(123)

// EncryptOddEvenness encrypts a single parity bit (isOdd) under pubKey by searching over
// seeds randomVal, randomVal+1, randomVal+2, ... until the encoded message point's
// x-coordinate has the desired parity, then encrypting c1/c2 with randomVal itself. Used to
// encode the active (even) / deactivated (odd) status flag (spec §4.4).
func EncryptOddEvenness(isOdd bool, pubKey babyjub.PubKey, randomVal *big.Int) Ciphertext {
	i := big.NewInt(0)
	two := big.NewInt(2)
	one := big.NewInt(1)

	seed := new(big.Int).Set(randomVal)
	message := EncodeToMessage(placeholderPlaintext, seed)
	for (new(big.Int).Mod(message.Point.X, two).Cmp(one) == 0) != isOdd {
		i.Add(i, one)
		seed = new(big.Int).Add(randomVal, i)
		message = EncodeToMessage(placeholderPlaintext, seed)
	}

	c1 := babyjub.Base8Mul(randomVal)
	pky := babyjub.ScalarMul(pubKey, randomVal)
	c2 := babyjub.Add(message.Point, pky)

	return Ciphertext{C1: c1, C2: c2, XIncrement: message.XIncrement}
}

// Decrypt recovers the plaintext encrypted in ct under the formatted private key
// formattedPrivKey (as produced by babyjub.FormatPrivKey).
func Decrypt(formattedPrivKey *big.Int, ct Ciphertext) *big.Int {
	c1x := babyjub.ScalarMul(ct.C1, formattedPrivKey)
	c1xInverse := babyjub.Neg(c1x)
	decrypted := babyjub.Add(c1xInverse, ct.C2)
	return DecodeMessage(Message{Point: decrypted, XIncrement: ct.XIncrement})
}

// Rerandomize produces a new ciphertext encrypting the same plaintext as ct, unlinkable to
// it, by adding Base8*randomVal to c1 and pubKey*randomVal to c2.
func Rerandomize(pubKey babyjub.PubKey, ct Ciphertext, randomVal *big.Int) Ciphertext {
	d1 := babyjub.Add(babyjub.Base8Mul(randomVal), ct.C1)
	d2 := babyjub.Add(babyjub.ScalarMul(pubKey, randomVal), ct.C2)
	return Ciphertext{C1: d1, C2: d2, XIncrement: ct.XIncrement}
}
