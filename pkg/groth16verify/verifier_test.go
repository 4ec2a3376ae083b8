package groth16verify

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254"
)

func TestDecodeG1RejectsWrongLength(t *testing.T) {
	if _, err := DecodeG1(make([]byte, 63)); err != ErrHexDecoding {
		t.Fatalf("expected ErrHexDecoding, got %v", err)
	}
}

func TestDecodeG2RejectsWrongLength(t *testing.T) {
	if _, err := DecodeG2(make([]byte, 127)); err != ErrHexDecoding {
		t.Fatalf("expected ErrHexDecoding, got %v", err)
	}
}

func TestDecodeG1RoundTripsGenerator(t *testing.T) {
	_, _, g1gen, _ := bn254.Generators()

	buf := make([]byte, G1Size)
	xb := g1gen.X.Bytes()
	yb := g1gen.Y.Bytes()
	copy(buf[0:32], xb[:])
	copy(buf[32:64], yb[:])

	got, err := DecodeG1(buf)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !got.Equal(&g1gen) {
		t.Fatal("decoded G1 generator does not match")
	}
}

func TestDecodeVerifyingKeyRejectsWrongICCount(t *testing.T) {
	_, _, g1gen, g2gen := bn254.Generators()
	g1b := make([]byte, G1Size)
	xb, yb := g1gen.X.Bytes(), g1gen.Y.Bytes()
	copy(g1b[0:32], xb[:])
	copy(g1b[32:64], yb[:])

	g2b := make([]byte, G2Size)
	xa1, xa0 := g2gen.X.A1.Bytes(), g2gen.X.A0.Bytes()
	ya1, ya0 := g2gen.Y.A1.Bytes(), g2gen.Y.A0.Bytes()
	copy(g2b[0:32], xa1[:])
	copy(g2b[32:64], xa0[:])
	copy(g2b[64:96], ya1[:])
	copy(g2b[96:128], ya0[:])

	_, err := DecodeVerifyingKey(g1b, g2b, g2b, g2b, [][]byte{g1b})
	if err == nil {
		t.Fatal("expected an error for a single-entry IC array")
	}
}
