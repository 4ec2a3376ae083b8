package round

import (
	"math/big"

	"github.com/dorafactory/amaci-core/pkg/poseidon"
)

// StartProcessPeriod closes voting and moves the round into Processing (spec §4.6.1).
// Permitted only once voting has ended and no deactivate messages remain unprocessed, and
// only from Pending or Voting (not Processing/Tallying/Ended). Grounded on contract.rs's
// execute_start_process_period.
func (m *Machine) StartProcessPeriod() error {
	meta, err := m.Store.LoadMeta()
	if err != nil {
		return err
	}
	now := m.Now()
	if now <= meta.VotingTime.End {
		return ErrPeriod
	}
	switch meta.Period {
	case PeriodEnded, PeriodProcessing, PeriodTallying:
		return ErrPeriod
	}
	if meta.ProcessedDmsgCount != meta.DmsgChainLength {
		return ErrDmsgLeftProcess
	}

	meta.Period = PeriodProcessing
	meta.CurrentStateCommitment = poseidon.Hash2(m.stateTree.Root(), big.NewInt(0))
	return m.Store.SaveMeta(meta)
}

// ProcessMessage consumes one batch of the message chain, replacing the state commitment
// with the value a Groth16 proof attests to (spec §4.6.2). Grounded on contract.rs's
// execute_process_message; packedVals branches on CircuitType exactly as the reference
// does (1p1v omits the circuit-type bit entirely rather than packing a zero).
func (m *Machine) ProcessMessage(newStateCommitment *big.Int, proof Groth16ProofHex) error {
	meta, err := m.Store.LoadMeta()
	if err != nil {
		return err
	}
	if meta.Period != PeriodProcessing {
		return ErrPeriod
	}
	if meta.ProcessedMsgCount >= meta.MsgChainLength {
		return ErrMsgLeftProcess
	}

	packedVals := packProcessMessageVals(meta)

	batchSize := meta.Params.MessageBatchSize
	batchStart := (meta.MsgChainLength - meta.ProcessedMsgCount - 1) / batchSize * batchSize
	batchEnd := batchStart + batchSize
	if batchEnd > meta.MsgChainLength {
		batchEnd = meta.MsgChainLength
	}

	hashStart, _, err := m.Store.MsgHashAt(batchStart)
	if err != nil {
		return err
	}
	hashEnd, _, err := m.Store.MsgHashAt(batchEnd)
	if err != nil {
		return err
	}

	inputs := []*big.Int{
		packedVals,
		meta.CoordinatorHash,
		zeroIfNil(hashStart),
		zeroIfNil(hashEnd),
		meta.CurrentStateCommitment,
		newStateCommitment,
		meta.CurrentDeactivateCommitment,
	}
	if err := verifyProof(meta.VerifyingKeys.Process, proof, inputs, "Process"); err != nil {
		return err
	}

	meta.CurrentStateCommitment = newStateCommitment
	meta.ProcessedMsgCount += batchEnd - batchStart
	return m.Store.SaveMeta(meta)
}

// packProcessMessageVals assembles process_message's packedVals public input: 1p1v packs
// (num_sign_ups << 32) + max_vote_options; QV additionally packs circuit_type << 64.
func packProcessMessageVals(meta *Meta) *big.Int {
	packed := new(big.Int).Lsh(big.NewInt(meta.NumSignUps), 32)
	if meta.CircuitType == CircuitTypeQV {
		packed.Add(packed, new(big.Int).Lsh(big.NewInt(int64(meta.CircuitType)), 64))
	}
	packed.Add(packed, big.NewInt(meta.MaxVoteOptions))
	return packed
}

// StopProcessingPeriod closes message processing and moves the round into Tallying (spec
// §4.6.1). If there are no signups at all, every message is vacuously invalid and the
// processed-count check is skipped, matching contract.rs's execute_stop_processing_period.
func (m *Machine) StopProcessingPeriod() error {
	meta, err := m.Store.LoadMeta()
	if err != nil {
		return err
	}
	if meta.Period != PeriodProcessing {
		return ErrPeriod
	}
	if meta.NumSignUps != 0 && meta.ProcessedMsgCount != meta.MsgChainLength {
		return ErrMsgLeftProcess
	}

	meta.Period = PeriodTallying
	return m.Store.SaveMeta(meta)
}
