// Package round implements the A-MACI round state machine (spec §3, §4.6, §6, §7): the
// Pending → Voting → Processing → Tallying → Ended lifecycle, signup/message/deactivate
// admission, batched Groth16 proof intake for the four circuits, and SLA-based delay
// tracking and fund settlement. Grounded on pkg/ledger/store.go's KV layout idiom (teacher)
// and on original_source/contracts/amaci/src/contract.rs (the DoraFactory MACI CosmWasm
// contract this spec was distilled from) for exact guard ordering, public-input array
// contents, and settlement math.
package round

import (
	"math/big"

	"github.com/dorafactory/amaci-core/pkg/babyjub"
)

// PubKey is a Baby Jubjub public key as used for signup/messaging identities.
type PubKey struct {
	X, Y *big.Int
}

func (p PubKey) toBabyjub() babyjub.PubKey { return babyjub.PubKey{X: p.X, Y: p.Y} }

// MaciParameters are immutable per-round circuit-shape parameters (spec §3).
type MaciParameters struct {
	StateTreeDepth     int
	IntStateTreeDepth  int
	VoteOptionTreeDepth int
	MessageBatchSize   int64
}

// MaxVoters is 5^StateTreeDepth.
func (p MaciParameters) MaxVoters() int64 { return pow5(p.StateTreeDepth) }

// MaxOptions is 5^VoteOptionTreeDepth.
func (p MaciParameters) MaxOptions() int64 { return pow5(p.VoteOptionTreeDepth) }

// TallyBatchSize is 5^IntStateTreeDepth.
func (p MaciParameters) TallyBatchSize() int64 { return pow5(p.IntStateTreeDepth) }

func pow5(n int) int64 {
	r := int64(1)
	for i := 0; i < n; i++ {
		r *= 5
	}
	return r
}

// validParamSets enumerates the only allowed (state, int_state, vote_option) depth triples
// (spec §3's invariant).
var validParamSets = map[[3]int]bool{
	{2, 1, 1}: true,
	{4, 2, 2}: true,
	{6, 3, 3}: true,
}

// Valid reports whether p is one of the three sanctioned parameter triples.
func (p MaciParameters) Valid() bool {
	return validParamSets[[3]int{p.StateTreeDepth, p.IntStateTreeDepth, p.VoteOptionTreeDepth}]
}

// CircuitType distinguishes the 1-person-1-vote circuit from the quadratic-voting circuit;
// it only affects how packedVals is assembled for process-message proofs.
type CircuitType int

const (
	CircuitType1P1V CircuitType = 0
	CircuitTypeQV   CircuitType = 1
)

// StateLeaf is a signup/add-new-key leaf (spec §3): a public key, voice-credit balance,
// vote-option subtree root, and nonce. Hashed with Poseidon-5 via LeafHash or
// LeafHashWithCommitment depending on whether it carries a new-key deactivation commitment.
type StateLeaf struct {
	PubKey             PubKey
	VoiceCreditBalance *big.Int
	VoteOptionTreeRoot *big.Int
	Nonce              *big.Int
}

// Period is the round's coarse lifecycle phase (spec §4.6.1).
type Period string

const (
	PeriodPending    Period = "pending"
	PeriodVoting     Period = "voting"
	PeriodProcessing Period = "processing"
	PeriodTallying   Period = "tallying"
	PeriodEnded      Period = "ended"
)

// VotingTime is the voter-facing registration/voting window.
type VotingTime struct {
	Start int64
	End   int64
}

// DelayKind distinguishes which SLA a DelayRecord penalizes.
type DelayKind string

const (
	DelayDeactivate DelayKind = "deactivate_delay"
	DelayTally      DelayKind = "tally_delay"
)

// DelayRecord is an immutable, append-only record of an SLA miss (spec §3). Reason is a
// short machine-and-human-readable description, matching the reference contract's
// attribute-string convention.
type DelayRecord struct {
	Timestamp int64
	DurationS int64
	Reason    string
	Count     int64
	Kind      DelayKind
}

// RoundInfo holds the admin-settable human-facing round metadata.
type RoundInfo struct {
	Title       string
	Description string
	Link        string
}

// Message is the fixed 7-scalar published-vote payload (spec §6 "Wire formats").
type Message [7]*big.Int

// Groth16ProofHex is the wire-format proof envelope (spec §6): each field is the raw
// big-endian point-tuple hex this verifier decodes via pkg/groth16verify.
type Groth16ProofHex struct {
	A string
	B string
	C string
}

// VerifyingKeyHex is the wire-format verifying key envelope for one circuit.
type VerifyingKeyHex struct {
	Alpha string
	Beta  string
	Gamma string
	Delta string
	IC    []string
}

// VerifyingKeySet holds the four circuits' verifying keys, set once at instantiation and
// never changed.
type VerifyingKeySet struct {
	ProcessDeactivate VerifyingKeyHex
	AddNewKey         VerifyingKeyHex
	Process           VerifyingKeyHex
	Tally             VerifyingKeyHex
}
