package round

import "math/big"

// AddNewKey re-registers a deactivated key under a fresh pubkey, proving via a Groth16
// proof that nullifier correctly derives from an entry in the current deactivate tree and
// that d[] is that entry's commitment (spec §4.2's key-rotation path). Grounded on
// contract.rs's execute_add_new_key.
func (m *Machine) AddNewKey(pubkey PubKey, nullifier *big.Int, d [4]*big.Int, proof Groth16ProofHex) (stateIndex int64, err error) {
	meta, err := m.Store.LoadMeta()
	if err != nil {
		return 0, err
	}
	if currentPeriod(meta, m.Now()) != PeriodVoting {
		return 0, ErrPeriod
	}

	used, err := m.Store.HasNullifier(nullifier)
	if err != nil {
		return 0, err
	}
	if used {
		return 0, ErrNewKeyExist
	}

	if meta.NumSignUps >= meta.Params.MaxVoters() {
		return 0, ErrMaxVoterExceeded
	}
	if !fieldValid(pubkey.X) || !fieldValid(pubkey.Y) {
		return 0, ErrHexDecoding
	}

	dnode0, _, err := m.Store.DNodeAt(0)
	if err != nil {
		return 0, err
	}
	inputs := []*big.Int{zeroIfNil(dnode0), meta.CoordinatorHash, nullifier, d[0], d[1], d[2], d[3]}
	if err := verifyProof(meta.VerifyingKeys.AddNewKey, proof, inputs, "AddNewKey"); err != nil {
		return 0, err
	}

	if err := m.Store.MarkNullifier(nullifier); err != nil {
		return 0, err
	}

	leaf := StateLeaf{
		PubKey:             pubkey,
		VoiceCreditBalance: meta.VoiceCreditAmount,
		VoteOptionTreeRoot: big.NewInt(0),
		Nonce:              big.NewInt(0),
	}
	hash := LeafHashWithCommitment(leaf, d)

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
	return stateIndex, nil
}

// PreAddNewKey is AddNewKey's fast path for before any deactivate-message batch has been
// processed: it proves against the round's fixed pre_deactivate_root/coordinator_hash
// (snapshotted at instantiation) instead of the live deactivate tree, and enqueues a
// plain sign_up-style leaf (zeroed commitment) rather than a commitment-carrying one.
// Grounded on contract.rs's execute_pre_add_new_key.
func (m *Machine) PreAddNewKey(pubkey PubKey, nullifier *big.Int, d [4]*big.Int, proof Groth16ProofHex) (stateIndex int64, err error) {
	meta, err := m.Store.LoadMeta()
	if err != nil {
		return 0, err
	}
	if currentPeriod(meta, m.Now()) != PeriodVoting {
		return 0, ErrPeriod
	}

	used, err := m.Store.HasNullifier(nullifier)
	if err != nil {
		return 0, err
	}
	if used {
		return 0, ErrNewKeyExist
	}

	if meta.NumSignUps >= meta.Params.MaxVoters() {
		return 0, ErrMaxVoterExceeded
	}
	if !fieldValid(pubkey.X) || !fieldValid(pubkey.Y) {
		return 0, ErrHexDecoding
	}

	coordinatorHash := meta.PreDeactivateCoordinatorHash
	if coordinatorHash == nil {
		coordinatorHash = meta.CoordinatorHash
	}
	inputs := []*big.Int{meta.PreDeactivateRoot, coordinatorHash, nullifier, d[0], d[1], d[2], d[3]}
	if err := verifyProof(meta.VerifyingKeys.AddNewKey, proof, inputs, "PreAddNewKey"); err != nil {
		return 0, err
	}

	if err := m.Store.MarkNullifier(nullifier); err != nil {
		return 0, err
	}

	leaf := StateLeaf{
		PubKey:             pubkey,
		VoiceCreditBalance: meta.VoiceCreditAmount,
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
	return stateIndex, nil
}
