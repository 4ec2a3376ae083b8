package round

import (
	"math/big"

	"github.com/dorafactory/amaci-core/pkg/merkle"
	"github.com/dorafactory/amaci-core/pkg/poseidon"
)

// Fixed SLA/fee constants (spec §6 "Fixed constants").
const (
	CreateRoundWindowSeconds     = 10 * 60
	DeactivateDelaySeconds       = 10 * 60
	TallyDelayMaxHours           = 48
	TallyTimeoutSeconds          = 4 * 24 * 60 * 60
	PenaltyRatePercent           = 50
	FeeRatePercent               = 10
	DeactivateDelayPenaltyPerEvt = 5
)

// Machine is the round state machine (spec §4.6, §6): it owns the working state and
// deactivate Merkle trees and dispatches one method per entry point, each enforcing guard
// order authorization → phase → admission → capacity → verification (spec §7's
// propagation policy) before touching storage.
type Machine struct {
	Store *Store

	stateTree      *merkle.QuinaryTree
	deactivateTree *merkle.QuinaryTree

	Forwarder MessageForwarder
	Operators OperatorRegistry

	// Now returns the current block time (unix seconds). Injected so tests can control
	// time deterministically; production wiring sets it from the ABCI block header.
	Now func() int64
}

// NewMachine constructs a Machine over an existing Store, rebuilding its working trees from
// any previously persisted meta/node state. forwarder and operators are stored as-is.
func NewMachine(store *Store, forwarder MessageForwarder, operators OperatorRegistry, now func() int64) (*Machine, error) {
	meta, err := store.LoadMeta()
	if err != nil && err != ErrNotFound {
		return nil, err
	}

	depth := 2
	if meta != nil && meta.Params.StateTreeDepth > 0 {
		depth = meta.Params.StateTreeDepth
	}
	stateTree, err := merkle.NewStateTree(depth)
	if err != nil {
		return nil, err
	}
	deactivateTree, err := merkle.NewQuinaryTree(depth)
	if err != nil {
		return nil, err
	}

	m := &Machine{
		Store:          store,
		stateTree:      stateTree,
		deactivateTree: deactivateTree,
		Forwarder:      forwarder,
		Operators:      operators,
		Now:            now,
	}

	if meta != nil {
		m.rehydrateTree(stateTree, meta.NumSignUps)
		droot, ok, err := store.DNodeAt(0)
		if err != nil {
			return nil, err
		}
		if ok {
			deactivateTree.SetRoot(droot)
		}
	}
	return m, nil
}

// rehydrateTree restores a tree's leaf nodes and recomputes ancestors from persisted Store
// scalars, for the state tree (the only incrementally-maintained tree; the deactivate tree
// is restored wholesale from its persisted root, dnode 0, instead, per spec §4.2).
func (m *Machine) rehydrateTree(tree *merkle.QuinaryTree, numLeaves int64) {
	for i := int64(0); i < numLeaves; i++ {
		v, ok, err := m.Store.NodeAt(tree.LeafIndex0() + i)
		if err != nil || !ok {
			continue
		}
		tree.LoadNode(tree.LeafIndex0()+i, v)
	}
	tree.RestoreNumLeaves(numLeaves)
	if numLeaves > 0 {
		tree.UpdateAt(tree.LeafIndex0()+numLeaves-1, true)
	}
}

// InstantiateParams bundles every instantiation-time constant (spec: "created at
// instantiation and never change").
type InstantiateParams struct {
	Admin        string
	Operator     string
	FeeRecipient string

	Params      MaciParameters
	CircuitType CircuitType

	RoundInfo  RoundInfo
	VotingTime VotingTime

	CoordinatorHash   *big.Int
	VoiceCreditAmount *big.Int

	VerifyingKeys VerifyingKeySet

	PreDeactivateRoot            *big.Int
	PreDeactivateCoordinatorHash *big.Int
}

// Instantiate initializes a fresh round. The end-time guard is
// start + create_round_window < end (spec §9's resolved open question #1).
func (m *Machine) Instantiate(p InstantiateParams) error {
	if !p.Params.Valid() {
		return ErrMaxVoteOptionsExceeded
	}
	if p.RoundInfo.Title == "" {
		return ErrTitleIsEmpty
	}
	if p.VotingTime.Start+CreateRoundWindowSeconds >= p.VotingTime.End {
		return ErrWrongTimeSet
	}

	depth := p.Params.StateTreeDepth
	stateTree, err := merkle.NewStateTree(depth)
	if err != nil {
		return err
	}
	deactivateTree, err := merkle.NewQuinaryTree(depth)
	if err != nil {
		return err
	}
	m.stateTree = stateTree
	m.deactivateTree = deactivateTree

	// current_deactivate_commitment seeds from the zero-seeded ZEROS table (contract.rs's
	// `zeros`, not the state tree's own ZEROS_H10): Hash2(zeros[state_tree_depth],
	// zeros[state_tree_depth+2]). zeros only has depth+1 entries (0..depth) by construction,
	// so we extend it two more levels here directly rather than carrying the extra entries
	// permanently, since they're only ever needed at this one call site.
	zeros := merkle.PoseidonZeros(depth)
	extended := zeros[depth]
	for i := 0; i < 2; i++ {
		var children [5]*big.Int
		for j := range children {
			children[j] = extended
		}
		extended = poseidon.Hash5(children)
	}
	initialDeactivateCommitment := poseidon.Hash2(zeros[depth], extended)

	meta := &Meta{
		Admin:                        p.Admin,
		Operator:                     p.Operator,
		FeeRecipient:                 p.FeeRecipient,
		Params:                       p.Params,
		CircuitType:                  p.CircuitType,
		RoundInfo:                    p.RoundInfo,
		VotingTime:                   p.VotingTime,
		CoordinatorHash:              p.CoordinatorHash,
		VoiceCreditAmount:            p.VoiceCreditAmount,
		CurrentStateCommitment:       big.NewInt(0),
		CurrentTallyCommitment:       big.NewInt(0),
		CurrentDeactivateCommitment:  initialDeactivateCommitment,
		PreDeactivateRoot:            p.PreDeactivateRoot,
		PreDeactivateCoordinatorHash: p.PreDeactivateCoordinatorHash,
		Period:                       PeriodPending,
		VerifyingKeys:                p.VerifyingKeys,
		TotalResult:                  big.NewInt(0),
		TallyPenaltyRate:             PenaltyRatePercent,
	}
	return m.Store.SaveMeta(meta)
}

// currentPeriod derives the live Period from the voting-time window and the persisted
// Period flag, matching spec §4.6.1's Pending→Voting transition being time-derived while
// later transitions are explicit.
func currentPeriod(meta *Meta, now int64) Period {
	if meta.Period == PeriodPending && now >= meta.VotingTime.Start && now < meta.VotingTime.End {
		return PeriodVoting
	}
	return meta.Period
}
