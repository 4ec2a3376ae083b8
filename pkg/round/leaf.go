package round

import (
	"math/big"

	"github.com/dorafactory/amaci-core/pkg/poseidon"
)

// LeafHash computes the plain sign-up state-leaf hash: Poseidon-5 over
// (pubkey.x, pubkey.y, voice_credit_balance, vote_option_tree_root, nonce).
func LeafHash(leaf StateLeaf) *big.Int {
	return poseidon.Hash5([5]*big.Int{
		leaf.PubKey.X,
		leaf.PubKey.Y,
		leaf.VoiceCreditBalance,
		leaf.VoteOptionTreeRoot,
		leaf.Nonce,
	})
}

// LeafHashWithCommitment computes the "new-key" state-leaf hash, additionally folding in
// the 4-element deactivation commitment d[0..4] that ties a freshly re-registered key back
// to the deactivated key it replaces. Spec §3 leaves the exact fold unspecified beyond
// "folds in a 4-element commitment d[0..4]"; we resolve that open question by extending the
// Poseidon sponge to all nine scalars in a single pass (pkg/poseidon.HashN supports
// arbitrary arity), rather than composing two separate hashes — see DESIGN.md.
func LeafHashWithCommitment(leaf StateLeaf, d [4]*big.Int) *big.Int {
	return poseidon.HashN([]*big.Int{
		leaf.PubKey.X,
		leaf.PubKey.Y,
		leaf.VoiceCreditBalance,
		leaf.VoteOptionTreeRoot,
		leaf.Nonce,
		d[0], d[1], d[2], d[3],
	})
}

// zeroCommitment is the all-zero 4-element commitment used by sign_up, which the spec
// (§9 open question, resolved) directs to use the deactivate-style leaf hasher with a
// zeroed commitment rather than the plain hasher.
var zeroCommitment = [4]*big.Int{big.NewInt(0), big.NewInt(0), big.NewInt(0), big.NewInt(0)}

// SignUpLeafHash is the hasher sign_up actually uses: LeafHashWithCommitment with a zeroed
// d[], per spec §9's resolved open question.
func SignUpLeafHash(leaf StateLeaf) *big.Int {
	return LeafHashWithCommitment(leaf, zeroCommitment)
}
