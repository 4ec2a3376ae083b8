package elgamal

import (
	"math/big"
	"testing"

	"github.com/dorafactory/amaci-core/pkg/babyjub"
)

func TestEncodeDecodeMessageRoundTrip(t *testing.T) {
	original := big.NewInt(42)
	msg := EncodeToMessage(original, big.NewInt(12345))
	got := DecodeMessage(msg)
	if got.Cmp(original) != 0 {
		t.Fatalf("decode mismatch: got %s want %s", got, original)
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	sk := babyjub.FormatPrivKey(leBytes32(big.NewInt(9876543210)))
	pub := babyjub.Base8Mul(sk)

	plaintext := big.NewInt(42)
	ct := Encrypt(plaintext, pub, big.NewInt(555))

	got := Decrypt(sk, ct)
	if got.Cmp(plaintext) != 0 {
		t.Fatalf("decrypt mismatch: got %s want %s", got, plaintext)
	}
}

func TestRerandomizePreservesPlaintext(t *testing.T) {
	sk := babyjub.FormatPrivKey(leBytes32(big.NewInt(2468)))
	pub := babyjub.Base8Mul(sk)

	plaintext := big.NewInt(7)
	ct := Encrypt(plaintext, pub, big.NewInt(111))
	rerand := Rerandomize(pub, ct, big.NewInt(222))

	if babyjub.Equal(ct.C1, rerand.C1) {
		t.Fatal("rerandomized ciphertext must differ from the original")
	}

	got := Decrypt(sk, rerand)
	if got.Cmp(plaintext) != 0 {
		t.Fatalf("rerandomized decrypt mismatch: got %s want %s", got, plaintext)
	}
}

func TestEncryptOddEvennessMatchesParity(t *testing.T) {
	sk := babyjub.FormatPrivKey(leBytes32(big.NewInt(13579)))
	pub := babyjub.Base8Mul(sk)

	for _, wantOdd := range []bool{true, false} {
		ct := EncryptOddEvenness(wantOdd, pub, big.NewInt(999))

		c1x := babyjub.ScalarMul(ct.C1, sk)
		c1xInverse := babyjub.Neg(c1x)
		point := babyjub.Add(c1xInverse, ct.C2)
		isOdd := new(big.Int).Mod(point.X, big.NewInt(2)).Cmp(big.NewInt(1)) == 0
		if isOdd != wantOdd {
			t.Fatalf("parity mismatch: got odd=%v want odd=%v", isOdd, wantOdd)
		}
	}
}
