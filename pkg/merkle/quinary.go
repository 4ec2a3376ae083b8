// Package merkle implements the incremental 5-ary Poseidon Merkle tree (spec §4.2) used for
// both the per-round state tree (signups, add-new-key) and the deactivate tree (whose root
// is overwritten wholesale at each process-deactivate batch rather than grown
// incrementally). Node indices follow the standard heap layout: the root is index 0, and
// node i's five children live at 5i+1..5i+5. Grounded on the teacher's
// pkg/merkle/tree.go — the ascent-by-level, lazily-recomputed-node-map shape carries over;
// arity (5 vs. 2) and hash function (Poseidon5 vs. SHA-256) do not, so this is a from-scratch
// rewrite rather than a parameterization of the original binary tree.
package merkle

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/dorafactory/amaci-core/pkg/poseidon"
)

// ErrTreeFull is returned by Enqueue when the tree has no remaining leaf capacity.
var ErrTreeFull = errors.New("merkle: tree is at capacity")

// ErrInvalidDepth is returned by NewQuinaryTree for a non-positive depth.
var ErrInvalidDepth = errors.New("merkle: depth must be positive")

const arity = 5

// Zeros is the precomputed table of empty-subtree roots, one entry per tree height:
// Zeros[0] = 0 (an absent leaf), Zeros[h] = Poseidon5(Zeros[h-1] repeated five times) for
// the tables PoseidonZeros computes. Each QuinaryTree carries its own table sized to its
// depth: trees from NewQuinaryTree compute it with PoseidonZeros, while trees from
// NewStateTree take the hardcoded zerosH10Table below.
type Zeros []*big.Int

// PoseidonZeros computes the empty-subtree constant table for a tree of the given depth
// (table has depth+1 entries, indices 0..depth), seeded from the zero scalar (an absent
// leaf). Used by the deactivate tree and by RootOf's one-shot results tree, both of which
// treat an empty leaf as the scalar 0 (contract.rs's ZEROS array).
func PoseidonZeros(depth int) Zeros {
	z := make(Zeros, depth+1)
	z[0] = big.NewInt(0)
	for h := 1; h <= depth; h++ {
		var children [5]*big.Int
		for j := range children {
			children[j] = z[h-1]
		}
		z[h] = poseidon.Hash5(children)
	}
	return z
}

// zerosH10Table holds the state tree's empty-subtree roots, contract.rs's ZEROS_H10: unlike
// PoseidonZeros' zero-seeded table, zerosH10Table[0] is the hash of a *blank sign-up leaf*
// (LeafHashWithCommitment over an all-zero pubkey/balance/root/nonce/commitment, per
// contract.rs's instantiate), so every entry is nonzero. Hardcoded rather than recomputed
// from the leaf hasher to guarantee bit-exact parity with the circuits; supports state trees
// up to depth 6, matching the reference's fixed 7-entry array.
var zerosH10Table = Zeros{
	mustBigFromDecimal("17275449213996161510934492606295966958609980169974699290756906233261208992839"),
	mustBigFromDecimal("18207706266780806924962529690397914300960241391319167935582599262189180861170"),
	mustBigFromDecimal("10155047796084846065379877743510757035594500557216694906214808863463609584493"),
	mustBigFromDecimal("18127908072205049515869530689345374790252438412920611306083118152373728836259"),
	mustBigFromDecimal("11773710380932653545559747058052522704305757415195021025284143362529247620506"),
	mustBigFromDecimal("14638012437623529368951445143647110672059367053598285839401224214917416754349"),
	mustBigFromDecimal("5035114852453394843899296226690566678263173670465782309520655898931824493744"),
}

func mustBigFromDecimal(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("merkle: invalid zerosH10Table constant " + s)
	}
	return n
}

// ErrStateTreeDepthUnsupported is returned by NewStateTree when depth exceeds the reference
// ZEROS_H10 table's 7 entries (depths 0..6).
var ErrStateTreeDepthUnsupported = errors.New("merkle: state tree depth exceeds ZEROS_H10 table")

// zerosH10(depth) returns the leading depth+1 entries of the state tree's ZEROS_H10 table.
func zerosH10(depth int) (Zeros, error) {
	if depth < 0 || depth >= len(zerosH10Table) {
		return nil, ErrStateTreeDepthUnsupported
	}
	return zerosH10Table[:depth+1], nil
}

// QuinaryTree is an append-only 5-ary Merkle tree over Poseidon, indexed by the standard
// heap layout. Nodes are stored sparsely in a map; unset nodes read as the zero-for-height
// constant for their position.
type QuinaryTree struct {
	mu         sync.RWMutex
	depth      int
	zeros      Zeros
	nodes      map[int64]*big.Int
	leafIdx0   int64
	numLeaves  int64
}

// NewQuinaryTree constructs an empty tree of the given depth (leaf capacity 5^depth), padded
// with the zero-seeded table (PoseidonZeros). Used for the deactivate tree, whose root is
// overwritten wholesale rather than grown incrementally, and for general-purpose trees.
func NewQuinaryTree(depth int) (*QuinaryTree, error) {
	if depth <= 0 {
		return nil, ErrInvalidDepth
	}
	return newQuinaryTree(depth, PoseidonZeros(depth)), nil
}

// NewStateTree constructs an empty tree of the given depth padded with ZEROS_H10, the
// blank-sign-up-leaf table the per-round state tree uses for its incremental ascent
// (contract.rs's state_update_at, which loads ZEROS_H10 for the empty-child fill and seeds
// NODES[0] from zeros_h10[state_tree_depth] at instantiation).
func NewStateTree(depth int) (*QuinaryTree, error) {
	if depth <= 0 {
		return nil, ErrInvalidDepth
	}
	zeros, err := zerosH10(depth)
	if err != nil {
		return nil, err
	}
	return newQuinaryTree(depth, zeros), nil
}

func newQuinaryTree(depth int, zeros Zeros) *QuinaryTree {
	capacity := pow5(depth)
	leafIdx0 := (capacity - 1) / 4
	return &QuinaryTree{
		depth:    depth,
		zeros:    zeros,
		nodes:    make(map[int64]*big.Int),
		leafIdx0: leafIdx0,
	}
}

func pow5(depth int) int64 {
	n := int64(1)
	for i := 0; i < depth; i++ {
		n *= arity
	}
	return n
}

// Depth returns the tree's configured depth.
func (t *QuinaryTree) Depth() int { return t.depth }

// Capacity returns the maximum number of leaves the tree can hold (5^depth).
func (t *QuinaryTree) Capacity() int64 { return pow5(t.depth) }

// LeafIndex0 returns the heap index of the first leaf slot: (5^depth - 1) / 4.
func (t *QuinaryTree) LeafIndex0() int64 { return t.leafIdx0 }

// NumLeaves returns the number of leaves written so far.
func (t *QuinaryTree) NumLeaves() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.numLeaves
}

// NodeAt reads the value at heap index i, returning the zero-for-height constant if the
// node has never been written.
func (t *QuinaryTree) NodeAt(i int64) *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.nodeAtLocked(i)
}

func (t *QuinaryTree) nodeAtLocked(i int64) *big.Int {
	if v, ok := t.nodes[i]; ok {
		return v
	}
	return t.zeros[t.heightFromIndex(i)]
}

// heightFromIndex computes a heap index's height by walking from the root down the implicit
// level boundaries: level 0 is the root (index 0), level k's first index is
// (5^k - 1) / 4, and there are 5^k nodes at level k.
func (t *QuinaryTree) heightFromIndex(i int64) int {
	level := 0
	first := int64(0)
	count := int64(1)
	for {
		if i >= first && i < first+count {
			return t.depth - level
		}
		level++
		first += count
		count *= arity
		if level > t.depth {
			// Shouldn't happen for valid indices; treat as a leaf-level miss.
			return 0
		}
	}
}

// parentOf returns the heap index of i's parent, and the child slot (0..4) i occupies.
func parentOf(i int64) (parent int64, slot int) {
	if i == 0 {
		return -1, 0
	}
	parent = (i - 1) / arity
	slot = int((i - 1) % arity)
	return parent, slot
}

// Enqueue writes leaf at the next free leaf slot and recomputes the path to the root
// (equivalent to UpdateAt(slot, true) after the write). Returns ErrTreeFull if the tree has
// no remaining capacity.
func (t *QuinaryTree) Enqueue(leaf *big.Int) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.numLeaves >= t.Capacity() {
		return 0, ErrTreeFull
	}
	idx := t.leafIdx0 + t.numLeaves
	t.nodes[idx] = leaf
	t.numLeaves++
	t.ascend(idx, true)
	return idx, nil
}

// UpdateAt recomputes ancestors starting from heap index i. When full is true, every
// ancestor up to the root is recomputed unconditionally. When full is false, the recompute
// stops early unless i is the last child of its parent's group (i mod 5 == 0 in the
// reference numbering), an optimization for append-only workloads where only completing a
// group of five siblings should trigger a full parent recompute.
func (t *QuinaryTree) UpdateAt(i int64, full bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ascend(i, full)
}

func (t *QuinaryTree) ascend(i int64, full bool) {
	for i != 0 {
		parent, slot := parentOf(i)
		if !full && slot != arity-1 {
			return
		}

		var children [5]*big.Int
		base := parent*arity + 1
		for j := 0; j < arity; j++ {
			children[j] = t.nodeAtLocked(base + int64(j))
		}
		t.nodes[parent] = poseidon.Hash5(children)
		i = parent
	}
}

// Root returns the tree's current root (heap index 0).
func (t *QuinaryTree) Root() *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.nodeAtLocked(0)
}

// SetRoot overwrites the root directly, bypassing the incremental-ascent machinery. Used by
// the deactivate tree, whose root the contract replaces wholesale from a proof's public
// output at each process-deactivate batch rather than maintaining incrementally (spec
// §4.2's "deactivate_tree[0] is set directly ... it is not maintained as an incremental
// tree by the contract").
func (t *QuinaryTree) SetRoot(root *big.Int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nodes[0] = root
}

// Zeros returns the tree's empty-subtree constant table (index h = height above leaves).
func (t *QuinaryTree) Zeros() Zeros {
	return t.zeros
}

// LoadNode directly sets the stored value at heap index i without triggering an ascent,
// and RestoreNumLeaves sets the leaf counter directly. Together these let a Machine
// rehydrate a tree from persisted Store entries after a restart, rather than replaying
// every historical enqueue.
func (t *QuinaryTree) LoadNode(i int64, v *big.Int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nodes[i] = v
}

// RestoreNumLeaves sets the leaf counter directly, for use alongside LoadNode during
// rehydration.
func (t *QuinaryTree) RestoreNumLeaves(n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.numLeaves = n
}

// RootOf computes the root of a one-shot (non-incremental) quinary Poseidon tree of the
// given depth over leaves, zero-padding out to capacity. Used for the vote-option results
// tree (spec §4.6.3's tally commitment), which is built once from a complete results array
// rather than grown incrementally like the state/deactivate trees.
func RootOf(depth int, leaves []*big.Int) *big.Int {
	zeros := PoseidonZeros(depth)
	if len(leaves) == 0 {
		return zeros[depth]
	}
	level := make([]*big.Int, len(leaves))
	copy(level, leaves)
	for h := 0; h < depth; h++ {
		groups := (len(level) + arity - 1) / arity
		next := make([]*big.Int, groups)
		for g := 0; g < groups; g++ {
			var children [5]*big.Int
			for j := 0; j < arity; j++ {
				idx := g*arity + j
				if idx < len(level) {
					children[j] = level[idx]
				} else {
					children[j] = zeros[h]
				}
			}
			next[g] = poseidon.Hash5(children)
		}
		level = next
	}
	return level[0]
}

// String renders the tree's shape for debugging.
func (t *QuinaryTree) String() string {
	return fmt.Sprintf("QuinaryTree{depth=%d, leaves=%d/%d, root=%s}", t.depth, t.numLeaves, t.Capacity(), t.Root())
}
