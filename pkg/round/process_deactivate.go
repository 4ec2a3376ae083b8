package round

import "math/big"

// ProcessDeactivateMessage consumes one batch of the deactivate-message chain, replacing the
// deactivate tree's root wholesale with the value a Groth16 proof attests to (spec §4.2: the
// deactivate tree's root is not grown incrementally, it is overwritten at each processed
// batch). Permitted at any time, not just during Voting (spec §4.6.1 — deactivate processing
// runs independently of the round's voter-facing phase). Grounded on contract.rs's
// execute_process_deactivate_message; public-input order and the delay-record bookkeeping
// it performs are reproduced exactly.
func (m *Machine) ProcessDeactivateMessage(size int64, newDeactivateCommitment, newDeactivateRoot *big.Int, proof Groth16ProofHex) error {
	meta, err := m.Store.LoadMeta()
	if err != nil {
		return err
	}

	if meta.ProcessedDmsgCount >= meta.DmsgChainLength {
		return ErrDmsgLeftProcess
	}
	if size > meta.Params.MessageBatchSize {
		return ErrMaxDeactivateMsgsReached
	}

	if err := m.Store.SetDNodeAt(0, newDeactivateRoot); err != nil {
		return err
	}

	batchStart := meta.ProcessedDmsgCount
	batchEnd := batchStart + size
	if batchEnd > meta.DmsgChainLength {
		batchEnd = meta.DmsgChainLength
	}

	dmsgHashStart, _, err := m.Store.DmsgHashAt(batchStart)
	if err != nil {
		return err
	}
	dmsgHashEnd, _, err := m.Store.DmsgHashAt(batchEnd)
	if err != nil {
		return err
	}
	stateRootAtEnd, _, err := m.Store.StateRootByDmsgAt(batchEnd)
	if err != nil {
		return err
	}

	inputs := []*big.Int{
		newDeactivateRoot,
		meta.CoordinatorHash,
		zeroIfNil(dmsgHashStart),
		zeroIfNil(dmsgHashEnd),
		meta.CurrentDeactivateCommitment,
		newDeactivateCommitment,
		zeroIfNil(stateRootAtEnd),
	}
	if err := verifyProof(meta.VerifyingKeys.ProcessDeactivate, proof, inputs, "ProcessDeactivate"); err != nil {
		return err
	}

	m.deactivateTree.SetRoot(newDeactivateRoot)
	meta.CurrentDeactivateCommitment = newDeactivateCommitment
	meta.ProcessedDmsgCount += batchEnd - batchStart

	if meta.FirstDmsgTimestamp != 0 {
		elapsed := m.Now() - meta.FirstDmsgTimestamp
		if elapsed > DeactivateDelaySeconds {
			meta.DelayRecords = append(meta.DelayRecords, DelayRecord{
				Timestamp: meta.FirstDmsgTimestamp,
				DurationS: elapsed,
				Reason:    "deactivate message batch processing exceeded its delay window",
				Count:     batchEnd - batchStart,
				Kind:      DelayDeactivate,
			})
		}
	}

	return m.Store.SaveMeta(meta)
}

func zeroIfNil(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}
