package round

import "math/big"

// deactivateDelayPenaltyRate is the flat per-event penalty-rate-point charged for each
// deactivate-message delayed past its SLA window, independent of the round's configured
// tally penalty rate (spec §6 "Fixed constants"). Grounded on contract.rs's
// calculate_operator_performance, which hardcodes 5 regardless of PENALTY_RATE.
const deactivateDelayPenaltyRate = DeactivateDelayPenaltyPerEvt

// OperatorPerformance summarizes the SLA record into a 0-100 miss rate (spec §4.7).
type OperatorPerformance struct {
	DelayDeactivateCount int64
	DelayTallyCount      int64
	MissRate             int64
}

// calculateOperatorPerformance tallies delay records into a miss rate: 100 minus a penalty
// rate of (tally_delay_count * tally_penalty_rate + deactivate_delay_count * 5), capped at
// 100. Grounded on contract.rs's calculate_operator_performance.
func calculateOperatorPerformance(meta *Meta) OperatorPerformance {
	var deactivateCount, tallyCount int64
	for _, r := range meta.DelayRecords {
		switch r.Kind {
		case DelayDeactivate:
			deactivateCount += r.Count
		case DelayTally:
			tallyCount++
		}
	}

	penaltyRate := tallyCount*meta.TallyPenaltyRate + deactivateCount*deactivateDelayPenaltyRate
	if penaltyRate > 100 {
		penaltyRate = 100
	}
	return OperatorPerformance{
		DelayDeactivateCount: deactivateCount,
		DelayTallyCount:      tallyCount,
		MissRate:             100 - penaltyRate,
	}
}

// ClaimResult reports how a Claim call split the round's escrowed balance.
type ClaimResult struct {
	FeeAmount      *big.Int
	OperatorReward *big.Int
	PenaltyAmount  *big.Int
	MissRate       int64
	IsTallyTimeout bool
}

// Claim settles and disburses the round's escrowed funds through funds (spec §4.7): a flat
// FeeRatePercent goes to the fee recipient, and the remainder splits between the operator
// (reward, scaled by miss rate) and the admin (penalty, the complement) — unless more than
// TallyTimeoutSeconds have passed since voting end, in which case the entire balance
// refunds to admin regardless of period (Ended included). Grounded on contract.rs's
// execute_claim.
func (m *Machine) Claim(funds FundsSource) (*ClaimResult, error) {
	meta, err := m.Store.LoadMeta()
	if err != nil {
		return nil, err
	}
	if meta.AllFundsClaimed {
		return nil, ErrAllFundsClaimed
	}

	balance, err := funds.Balance()
	if err != nil {
		return nil, err
	}
	if balance.Sign() == 0 {
		return nil, ErrAllFundsClaimed
	}

	now := m.Now()
	if now > meta.VotingTime.End+TallyTimeoutSeconds {
		if err := funds.Send(meta.Admin, balance); err != nil {
			return nil, err
		}
		meta.AllFundsClaimed = true
		if err := m.Store.SaveMeta(meta); err != nil {
			return nil, err
		}
		return &ClaimResult{
			FeeAmount:      big.NewInt(0),
			OperatorReward: big.NewInt(0),
			PenaltyAmount:  balance,
			MissRate:       0,
			IsTallyTimeout: true,
		}, nil
	}

	if meta.Period != PeriodEnded {
		return nil, ErrPeriod
	}

	feeAmount := new(big.Int).Div(new(big.Int).Mul(balance, big.NewInt(FeeRatePercent)), big.NewInt(100))
	remaining := new(big.Int).Sub(balance, feeAmount)

	performance := calculateOperatorPerformance(meta)
	operatorReward := new(big.Int).Div(new(big.Int).Mul(remaining, big.NewInt(performance.MissRate)), big.NewInt(100))
	penaltyAmount := new(big.Int).Sub(remaining, operatorReward)

	if feeAmount.Sign() != 0 {
		if err := funds.Send(meta.FeeRecipient, feeAmount); err != nil {
			return nil, err
		}
	}
	if penaltyAmount.Sign() != 0 {
		if err := funds.Send(meta.Admin, penaltyAmount); err != nil {
			return nil, err
		}
	}
	if operatorReward.Sign() != 0 {
		if err := funds.Send(meta.Operator, operatorReward); err != nil {
			return nil, err
		}
	}

	meta.AllFundsClaimed = true
	if err := m.Store.SaveMeta(meta); err != nil {
		return nil, err
	}

	return &ClaimResult{
		FeeAmount:      feeAmount,
		OperatorReward: operatorReward,
		PenaltyAmount:  penaltyAmount,
		MissRate:       performance.MissRate,
		IsTallyTimeout: false,
	}, nil
}
