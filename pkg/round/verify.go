package round

import (
	"encoding/hex"
	"math/big"

	"github.com/dorafactory/amaci-core/pkg/field"
	"github.com/dorafactory/amaci-core/pkg/groth16verify"
)

// decodeProofHex hex-decodes a Groth16ProofHex's three point-tuple strings and parses them
// into a groth16verify.Proof.
func decodeProofHex(p Groth16ProofHex) (groth16verify.Proof, error) {
	a, err := hex.DecodeString(p.A)
	if err != nil {
		return groth16verify.Proof{}, groth16verify.ErrHexDecoding
	}
	b, err := hex.DecodeString(p.B)
	if err != nil {
		return groth16verify.Proof{}, groth16verify.ErrHexDecoding
	}
	c, err := hex.DecodeString(p.C)
	if err != nil {
		return groth16verify.Proof{}, groth16verify.ErrHexDecoding
	}
	return groth16verify.DecodeProof(a, b, c)
}

// decodeVerifyingKeyHex hex-decodes a VerifyingKeyHex's point-tuple strings and parses them
// into a groth16verify.VerifyingKey.
func decodeVerifyingKeyHex(vk VerifyingKeyHex) (groth16verify.VerifyingKey, error) {
	alpha, err := hex.DecodeString(vk.Alpha)
	if err != nil {
		return groth16verify.VerifyingKey{}, groth16verify.ErrHexDecoding
	}
	beta, err := hex.DecodeString(vk.Beta)
	if err != nil {
		return groth16verify.VerifyingKey{}, groth16verify.ErrHexDecoding
	}
	gamma, err := hex.DecodeString(vk.Gamma)
	if err != nil {
		return groth16verify.VerifyingKey{}, groth16verify.ErrHexDecoding
	}
	delta, err := hex.DecodeString(vk.Delta)
	if err != nil {
		return groth16verify.VerifyingKey{}, groth16verify.ErrHexDecoding
	}
	ic := make([][]byte, len(vk.IC))
	for i, s := range vk.IC {
		b, err := hex.DecodeString(s)
		if err != nil {
			return groth16verify.VerifyingKey{}, groth16verify.ErrHexDecoding
		}
		ic[i] = b
	}
	return groth16verify.DecodeVerifyingKey(alpha, beta, gamma, delta, ic)
}

// verifyProof decodes proof and vk from their wire-hex form, reduces inputs to the single
// public input via field.PublicInput (spec §4.5's Keccak-then-reduce recipe), and runs the
// Groth16 pairing check, returning InvalidProofError{step} on a clean verification failure.
func verifyProof(vk VerifyingKeyHex, proof Groth16ProofHex, inputs []*big.Int, step string) error {
	pr, err := decodeProofHex(proof)
	if err != nil {
		return err
	}
	vkDecoded, err := decodeVerifyingKeyHex(vk)
	if err != nil {
		return err
	}
	x := field.PublicInput(inputs)
	ok, err := groth16verify.Verify(vkDecoded, pr, x)
	if err != nil {
		return err
	}
	if !ok {
		return NewInvalidProofError(step)
	}
	return nil
}
