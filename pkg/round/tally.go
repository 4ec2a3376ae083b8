package round

import (
	"math/big"

	"github.com/dorafactory/amaci-core/pkg/merkle"
	"github.com/dorafactory/amaci-core/pkg/poseidon"
)

// ProcessTally consumes one batch of signed-up users into the running tally commitment
// (spec §4.6.3). Grounded on contract.rs's execute_process_tally; batch_num is
// processed_user_count / tally_batch_size, matching the reference's integer division.
func (m *Machine) ProcessTally(newTallyCommitment *big.Int, proof Groth16ProofHex) error {
	meta, err := m.Store.LoadMeta()
	if err != nil {
		return err
	}
	if meta.Period != PeriodTallying {
		return ErrPeriod
	}
	if meta.ProcessedUserCount >= meta.NumSignUps {
		return ErrMsgLeftProcess
	}

	batchSize := meta.Params.TallyBatchSize()
	batchNum := meta.ProcessedUserCount / batchSize

	packedVals := new(big.Int).Lsh(big.NewInt(meta.NumSignUps), 32)
	packedVals.Add(packedVals, big.NewInt(batchNum))

	inputs := []*big.Int{
		packedVals,
		meta.CurrentStateCommitment,
		meta.CurrentTallyCommitment,
		newTallyCommitment,
	}
	if err := verifyProof(meta.VerifyingKeys.Tally, proof, inputs, "Tally"); err != nil {
		return err
	}

	meta.CurrentTallyCommitment = newTallyCommitment
	meta.ProcessedUserCount += batchSize
	return m.Store.SaveMeta(meta)
}

// StopTallyingPeriod reveals the final per-vote-option result vector and closes the round
// (spec §4.6.3 -> §4.6.1's terminal transition). If current_tally_commitment is still zero
// (no ProcessTally batch ever ran — e.g. zero signups), results are accepted unchecked;
// otherwise they must match Hash2(RootOf(vote_option_tree_depth, results), salt). SLA delay
// bookkeeping mirrors ProcessDeactivateMessage's. Grounded on contract.rs's
// execute_stop_tallying_period / calculate_tally_delay.
func (m *Machine) StopTallyingPeriod(results []*big.Int, salt *big.Int) error {
	meta, err := m.Store.LoadMeta()
	if err != nil {
		return err
	}
	if meta.Period != PeriodTallying {
		return ErrPeriod
	}
	if meta.ProcessedUserCount < meta.NumSignUps {
		return ErrMsgLeftProcess
	}
	if int64(len(results)) > meta.MaxVoteOptions {
		return ErrMaxVoteOptionsExceeded
	}

	delay := calculateTallyDelay(meta)
	now := m.Now()
	elapsed := now - meta.VotingTime.End
	if elapsed > delay {
		meta.DelayRecords = append(meta.DelayRecords, DelayRecord{
			Timestamp: meta.VotingTime.End,
			DurationS: elapsed,
			Reason:    "tallying exceeded its allotted delay window",
			Count:     0,
			Kind:      DelayTally,
		})
	}

	resultsRoot := merkle.RootOf(meta.Params.VoteOptionTreeDepth, results)
	tallyCommitment := poseidon.Hash2(resultsRoot, salt)
	if meta.CurrentTallyCommitment.Sign() != 0 {
		if tallyCommitment.Cmp(meta.CurrentTallyCommitment) != 0 {
			return NewInvalidProofError("StopTallying")
		}
	}

	sum := big.NewInt(0)
	for i, r := range results {
		if err := m.Store.SetResultAt(int64(i), r); err != nil {
			return err
		}
		sum.Add(sum, r)
	}
	meta.TotalResult = sum
	meta.Period = PeriodEnded
	return m.Store.SaveMeta(meta)
}

// calculateTallyDelay returns the allowed tallying window in seconds: the smallest
// sanctioned parameter set (state_tree_depth == 2, the "2-1-1" shape) always gets a flat one
// hour; every larger parameter set gets the fixed TallyDelayMaxHours. Grounded
// exactly on contract.rs's calculate_tally_delay — despite the total-workload computation
// visible there, the reference's actual branch does not scale on it, only on
// state_tree_depth.
func calculateTallyDelay(meta *Meta) int64 {
	if meta.Params.StateTreeDepth == 2 {
		return 1 * 3600
	}
	return TallyDelayMaxHours * 3600
}
