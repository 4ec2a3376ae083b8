package round

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
)

// oraclePayload renders the exact canonical JSON the oracle signs over: a compact object
// with string-typed fields in alphabetical key order, matching
// original_source/contracts/amaci/src/contract.rs's serde_json::json!({...}) construction
// (default serde_json orders object keys alphabetically absent the preserve_order feature,
// which here coincides with the field order as written).
func oraclePayload(amount, contractAddress, pubkeyX, pubkeyY *big.Int) []byte {
	return []byte(fmt.Sprintf(
		`{"amount":"%s","contract_address":"%s","pubkey_x":"%s","pubkey_y":"%s"}`,
		amount.String(), contractAddress.String(), pubkeyX.String(), pubkeyY.String(),
	))
}

// VerifyOracleCertificate checks an oracle sign-up certificate: SHA-256 the canonical JSON
// payload, then verify certificateB64 (a base64-encoded 64-byte secp256k1 compact
// signature, spec §6) against oraclePubKeyB64 (a base64-encoded secp256k1 public key) over
// that digest.
func VerifyOracleCertificate(amount, contractAddress, pubkeyX, pubkeyY *big.Int, certificateB64, oraclePubKeyB64 string) (bool, error) {
	certificate, err := base64.StdEncoding.DecodeString(certificateB64)
	if err != nil {
		return false, ErrInvalidBase64
	}
	oraclePubKey, err := base64.StdEncoding.DecodeString(oraclePubKeyB64)
	if err != nil {
		return false, ErrInvalidBase64
	}
	if len(certificate) != 64 {
		return false, ErrInvalidSignature
	}

	digest := sha256.Sum256(oraclePayload(amount, contractAddress, pubkeyX, pubkeyY))
	return crypto.VerifySignature(oraclePubKey, digest[:], certificate), nil
}
