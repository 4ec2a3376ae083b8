package field

import (
	"math/big"
	"testing"
)

func TestInField(t *testing.T) {
	if !InField(big.NewInt(0)) {
		t.Fatal("0 should be in field")
	}
	if InField(Modulus) {
		t.Fatal("modulus itself is not a valid reduced element")
	}
	if InField(big.NewInt(-1)) {
		t.Fatal("negative values are not in field")
	}
}

func TestToFromBytes32RoundTrip(t *testing.T) {
	x := big.NewInt(123456789)
	b := ToBytes32(x)
	got := FromBytes32(b)
	if got.Cmp(x) != 0 {
		t.Fatalf("round trip mismatch: got %s want %s", got, x)
	}
}

func TestPublicInputDeterministic(t *testing.T) {
	inputs := []*big.Int{big.NewInt(1), big.NewInt(2), big.NewInt(3)}
	a := PublicInput(inputs)
	b := PublicInput([]*big.Int{big.NewInt(1), big.NewInt(2), big.NewInt(3)})
	if a.Cmp(b) != 0 {
		t.Fatalf("PublicInput must be deterministic: %s != %s", a, b)
	}
	if !InField(a) {
		t.Fatalf("PublicInput must be reduced into the field: %s", a)
	}

	c := PublicInput([]*big.Int{big.NewInt(1), big.NewInt(2), big.NewInt(4)})
	if a.Cmp(c) == 0 {
		t.Fatal("different inputs must not collide trivially")
	}
}
