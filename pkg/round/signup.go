package round

import "math/big"

// SignUp registers pubkey for the round's fixed voice-credit balance, either via the
// traditional sender-whitelist path (certificate == nil) or the oracle-certificate path.
// Every signup receives the same amount, meta.VoiceCreditAmount — the caller never supplies
// it — matching contract.rs's execute_sign_up, which loads VOICE_CREDIT_AMOUNT from storage
// rather than trusting a message field. Guard order follows spec §7: phase → admission →
// capacity → state mutation.
//
// sign_up's leaf hash uses the deactivate-style hasher with a zeroed commitment, per spec
// §9's resolved open question — see SignUpLeafHash.
func (m *Machine) SignUp(sender string, pubkey PubKey, oracle *OracleCertificate) (stateIndex int64, err error) {
	meta, err := m.Store.LoadMeta()
	if err != nil {
		return 0, err
	}
	if currentPeriod(meta, m.Now()) != PeriodVoting {
		return 0, ErrPeriod
	}
	voiceCreditAmount := meta.VoiceCreditAmount

	if oracle != nil {
		if oracle.OracleWhitelistPubKey == "" {
			return 0, ErrOracleWhitelistNotConfig
		}
		ok, err := VerifyOracleCertificate(voiceCreditAmount, oracle.ContractAddress, pubkey.X, pubkey.Y, oracle.CertificateB64, oracle.OracleWhitelistPubKey)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, ErrInvalidSignature
		}
		already, err := m.Store.HasOracleWhitelistEntry(pubkey.X, pubkey.Y)
		if err != nil {
			return 0, err
		}
		if already {
			return 0, ErrAlreadySignedUp
		}
	} else {
		whitelisted, err := m.Store.IsWhitelisted(sender)
		if err != nil {
			return 0, err
		}
		if !whitelisted {
			return 0, ErrWhitelistNotConfigured
		}
		registered, err := m.Store.IsRegistered(sender)
		if err != nil {
			return 0, err
		}
		if registered {
			return 0, ErrUserAlreadyRegistered
		}
	}

	if meta.NumSignUps >= meta.Params.MaxVoters() {
		return 0, ErrMaxVoterExceeded
	}
	if !fieldValid(pubkey.X) || !fieldValid(pubkey.Y) {
		return 0, ErrHexDecoding
	}

	leaf := StateLeaf{
		PubKey:             pubkey,
		VoiceCreditBalance: voiceCreditAmount,
		VoteOptionTreeRoot: big.NewInt(0),
		Nonce:              big.NewInt(0),
	}
	hash := SignUpLeafHash(leaf)

	idx, err := m.stateTree.Enqueue(hash)
	if err != nil {
		return 0, err
	}
	if err := m.Store.SetNodeAt(idx, hash); err != nil {
		return 0, err
	}

	stateIndex = meta.NumSignUps
	meta.NumSignUps++
	if err := m.Store.SaveMeta(meta); err != nil {
		return 0, err
	}
	if err := m.Store.SetSignupStateIndex(pubkey.X, pubkey.Y, stateIndex); err != nil {
		return 0, err
	}
	if err := m.Store.SetVoiceCreditBalance(pubkey.X, pubkey.Y, voiceCreditAmount); err != nil {
		return 0, err
	}

	if oracle != nil {
		if err := m.Store.SetOracleWhitelistEntry(pubkey.X, pubkey.Y); err != nil {
			return 0, err
		}
	} else {
		if err := m.Store.MarkRegistered(sender); err != nil {
			return 0, err
		}
	}
	return stateIndex, nil
}

// OracleCertificate bundles the oracle sign-up mode's inputs (spec §6 wire format: a
// base64-encoded secp256k1 signature over a canonical JSON payload).
type OracleCertificate struct {
	CertificateB64        string
	OracleWhitelistPubKey string
	ContractAddress       *big.Int
}

// fieldValid reports whether x is a nonnegative value strictly below the SNARK scalar
// field modulus, the pubkey-coordinate bound spec §4.1 requires.
func fieldValid(x *big.Int) bool {
	return x != nil && x.Sign() >= 0 && x.Cmp(snarkScalarField) < 0
}

var snarkScalarField, _ = new(big.Int).SetString("21888242871839275222246405745257275088548364400416034343698204186575808495617", 10)
