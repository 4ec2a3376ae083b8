package round

import "math/big"

// RoundState is a read-only snapshot of the round's scalar state, returned by Query — the
// same fields the reference contract's GetRoundInfo/GetPeriod/GetVotingTime/GetNumSignUp
// queries expose individually, bundled here since Go callers hold everything behind one
// Store read anyway.
type RoundState struct {
	Admin        string
	Operator     string
	FeeRecipient string

	Params      MaciParameters
	CircuitType CircuitType
	RoundInfo   RoundInfo
	VotingTime  VotingTime
	Period      Period

	CoordinatorHash   *big.Int
	VoiceCreditAmount *big.Int

	CurrentStateCommitment      *big.Int
	CurrentTallyCommitment      *big.Int
	CurrentDeactivateCommitment *big.Int

	PreDeactivateRoot            *big.Int
	PreDeactivateCoordinatorHash *big.Int

	NumSignUps         int64
	MsgChainLength     int64
	DmsgChainLength    int64
	ProcessedMsgCount  int64
	ProcessedDmsgCount int64
	ProcessedUserCount int64

	MaxVoteOptions int64
	TotalResult    *big.Int

	AllFundsClaimed bool
}

// Query returns the round's current scalar state, with Period resolved through the
// time-derived Pending→Voting transition (currentPeriod), not the raw persisted flag.
func (m *Machine) Query() (*RoundState, error) {
	meta, err := m.Store.LoadMeta()
	if err != nil {
		return nil, err
	}
	return &RoundState{
		Admin:                        meta.Admin,
		Operator:                     meta.Operator,
		FeeRecipient:                 meta.FeeRecipient,
		Params:                       meta.Params,
		CircuitType:                  meta.CircuitType,
		RoundInfo:                    meta.RoundInfo,
		VotingTime:                   meta.VotingTime,
		Period:                       currentPeriod(meta, m.Now()),
		CoordinatorHash:              meta.CoordinatorHash,
		VoiceCreditAmount:            meta.VoiceCreditAmount,
		CurrentStateCommitment:       meta.CurrentStateCommitment,
		CurrentTallyCommitment:       meta.CurrentTallyCommitment,
		CurrentDeactivateCommitment:  meta.CurrentDeactivateCommitment,
		PreDeactivateRoot:            meta.PreDeactivateRoot,
		PreDeactivateCoordinatorHash: meta.PreDeactivateCoordinatorHash,
		NumSignUps:                   meta.NumSignUps,
		MsgChainLength:               meta.MsgChainLength,
		DmsgChainLength:              meta.DmsgChainLength,
		ProcessedMsgCount:            meta.ProcessedMsgCount,
		ProcessedDmsgCount:           meta.ProcessedDmsgCount,
		ProcessedUserCount:           meta.ProcessedUserCount,
		MaxVoteOptions:               meta.MaxVoteOptions,
		TotalResult:                  meta.TotalResult,
		AllFundsClaimed:              meta.AllFundsClaimed,
	}, nil
}

// StateTreeRoot returns the working state tree's current root.
func (m *Machine) StateTreeRoot() *big.Int { return m.stateTree.Root() }

// DeactivateTreeRoot returns the working deactivate tree's current root.
func (m *Machine) DeactivateTreeRoot() *big.Int { return m.deactivateTree.Root() }

// StateTreeNodeAt returns the state tree's node value at idx. Only leaf nodes are persisted
// to Store (signup.go, addnewkey.go); ancestors live solely in the in-memory tree built by
// NewMachine's rehydration, so this reads through m.stateTree rather than the Store directly.
func (m *Machine) StateTreeNodeAt(idx int64) (*big.Int, bool, error) {
	if idx < 0 || idx >= m.stateTree.LeafIndex0()+m.stateTree.Capacity() {
		return nil, false, nil
	}
	return m.stateTree.NodeAt(idx), true, nil
}

// DeactivateTreeNodeAt returns the deactivate tree's persisted node (dnode) at idx.
func (m *Machine) DeactivateTreeNodeAt(idx int64) (*big.Int, bool, error) {
	return m.Store.DNodeAt(idx)
}

// MessageHashAt returns the hash chain value recorded for the published message at idx.
func (m *Machine) MessageHashAt(idx int64) (*big.Int, bool, error) { return m.Store.MsgHashAt(idx) }

// DeactivateMessageHashAt returns the hash chain value recorded for the deactivate message
// at idx.
func (m *Machine) DeactivateMessageHashAt(idx int64) (*big.Int, bool, error) {
	return m.Store.DmsgHashAt(idx)
}

// StateRootAtDeactivateMessage returns the state tree root snapshotted when the deactivate
// message at idx was published (spec §4.3).
func (m *Machine) StateRootAtDeactivateMessage(idx int64) (*big.Int, bool, error) {
	return m.Store.StateRootByDmsgAt(idx)
}

// ResultAt returns the revealed tally result for vote option idx, once StopTallyingPeriod
// has run.
func (m *Machine) ResultAt(idx int64) (*big.Int, bool, error) { return m.Store.ResultAt(idx) }

// IsWhitelisted reports whether addr has been granted a traditional-signup slot, whether or
// not it has signed up since.
func (m *Machine) IsWhitelisted(addr string) (bool, error) { return m.Store.IsWhitelisted(addr) }

// SignupStateIndex returns the state-tree leaf index a pubkey signed up at, if any.
func (m *Machine) SignupStateIndex(pubkey PubKey) (int64, bool, error) {
	return m.Store.SignupStateIndex(pubkey.X, pubkey.Y)
}

// VoiceCreditBalance returns a signed-up pubkey's remaining voice-credit balance.
func (m *Machine) VoiceCreditBalance(pubkey PubKey) (*big.Int, bool, error) {
	return m.Store.VoiceCreditBalance(pubkey.X, pubkey.Y)
}

// DelayRecords returns the round's full SLA delay history.
func (m *Machine) DelayRecords() ([]DelayRecord, error) {
	meta, err := m.Store.LoadMeta()
	if err != nil {
		return nil, err
	}
	return meta.DelayRecords, nil
}

// OperatorPerformance computes the round's current miss rate from its delay history without
// requiring the round to have ended.
func (m *Machine) OperatorPerformance() (OperatorPerformance, error) {
	meta, err := m.Store.LoadMeta()
	if err != nil {
		return OperatorPerformance{}, err
	}
	return calculateOperatorPerformance(meta), nil
}

// TallyDeadline returns the wall-clock unix timestamp by which StopTallyingPeriod must run
// to avoid an SLA delay record, per calculateTallyDelay.
func (m *Machine) TallyDeadline() (int64, error) {
	meta, err := m.Store.LoadMeta()
	if err != nil {
		return 0, err
	}
	return meta.VotingTime.End + calculateTallyDelay(meta), nil
}
