package merkle

import (
	"math/big"
	"testing"

	"github.com/dorafactory/amaci-core/pkg/poseidon"
)

func TestEmptyTreeRootIsZerosTop(t *testing.T) {
	tr, err := NewQuinaryTree(2)
	if err != nil {
		t.Fatal(err)
	}
	if tr.Root().Cmp(tr.Zeros()[2]) != 0 {
		t.Fatalf("empty tree root should equal zeros[depth]: got %s want %s", tr.Root(), tr.Zeros()[2])
	}
}

func TestEnqueueMatchesManualPoseidonFold(t *testing.T) {
	tr, err := NewQuinaryTree(2)
	if err != nil {
		t.Fatal(err)
	}
	leaves := []*big.Int{big.NewInt(1), big.NewInt(2), big.NewInt(3), big.NewInt(4), big.NewInt(5)}
	for _, l := range leaves {
		if _, err := tr.Enqueue(l); err != nil {
			t.Fatal(err)
		}
	}

	// Depth-2 tree: root = Hash5(parent_0..4), each parent_k = Hash5(leaves in its group).
	// With exactly 5 leaves filling the first group and the remaining 4 groups empty,
	// parent_0 = Hash5(1,2,3,4,5) and parents 1..4 = zeros[1].
	zeros := tr.Zeros()
	group0 := poseidon.Hash5([5]*big.Int{leaves[0], leaves[1], leaves[2], leaves[3], leaves[4]})
	wantRoot := poseidon.Hash5([5]*big.Int{group0, zeros[1], zeros[1], zeros[1], zeros[1]})

	if tr.Root().Cmp(wantRoot) != 0 {
		t.Fatalf("root mismatch: got %s want %s", tr.Root(), wantRoot)
	}
}

func TestEnqueueBeyondCapacityFails(t *testing.T) {
	tr, err := NewQuinaryTree(1)
	if err != nil {
		t.Fatal(err)
	}
	for i := int64(0); i < tr.Capacity(); i++ {
		if _, err := tr.Enqueue(big.NewInt(i + 1)); err != nil {
			t.Fatalf("unexpected enqueue failure at %d: %v", i, err)
		}
	}
	if _, err := tr.Enqueue(big.NewInt(99)); err != ErrTreeFull {
		t.Fatalf("expected ErrTreeFull, got %v", err)
	}
}

func TestDeterministicAcrossIndependentTrees(t *testing.T) {
	build := func() *big.Int {
		tr, err := NewQuinaryTree(2)
		if err != nil {
			t.Fatal(err)
		}
		for i := int64(1); i <= 7; i++ {
			if _, err := tr.Enqueue(big.NewInt(i)); err != nil {
				t.Fatal(err)
			}
		}
		return tr.Root()
	}
	a, b := build(), build()
	if a.Cmp(b) != 0 {
		t.Fatalf("two independently built trees diverged: %s != %s", a, b)
	}
}

func TestLeafIndex0AndCapacity(t *testing.T) {
	tr, err := NewQuinaryTree(3)
	if err != nil {
		t.Fatal(err)
	}
	if tr.Capacity() != 125 {
		t.Fatalf("capacity: got %d want 125", tr.Capacity())
	}
	wantLeafIdx0 := int64((125 - 1) / 4)
	if tr.LeafIndex0() != wantLeafIdx0 {
		t.Fatalf("leaf_idx0: got %d want %d", tr.LeafIndex0(), wantLeafIdx0)
	}
}

func TestSetRootOverridesDirectly(t *testing.T) {
	tr, err := NewQuinaryTree(2)
	if err != nil {
		t.Fatal(err)
	}
	newRoot := big.NewInt(424242)
	tr.SetRoot(newRoot)
	if tr.Root().Cmp(newRoot) != 0 {
		t.Fatalf("SetRoot should overwrite root directly: got %s want %s", tr.Root(), newRoot)
	}
}

func TestInvalidDepthRejected(t *testing.T) {
	if _, err := NewQuinaryTree(0); err != ErrInvalidDepth {
		t.Fatalf("expected ErrInvalidDepth, got %v", err)
	}
}

// TestUpdateAtLazyDeferredUntilGroupComplete exercises UpdateAt's full=false path: recompute
// only propagates past a node once that node is the last (5th) child of its parent's group,
// deferring everything else.
func TestUpdateAtLazyDeferredUntilGroupComplete(t *testing.T) {
	tr, err := NewQuinaryTree(2)
	if err != nil {
		t.Fatal(err)
	}

	first := tr.LeafIndex0() // group [first .. first+4], first is slot 0, first+4 is slot 4
	tr.LoadNode(first, big.NewInt(99))

	tr.UpdateAt(first, false)
	if tr.NodeAt(1).Cmp(tr.Zeros()[1]) != 0 {
		t.Fatalf("updating a non-last-child slot should defer the parent recompute")
	}

	tr.UpdateAt(first+4, false)
	if tr.NodeAt(1).Cmp(tr.Zeros()[1]) == 0 {
		t.Fatalf("updating the last-child slot should recompute the parent")
	}
}

func TestNewStateTreeUsesZerosH10(t *testing.T) {
	tr, err := NewStateTree(2)
	if err != nil {
		t.Fatal(err)
	}
	if tr.Zeros()[0].Sign() == 0 {
		t.Fatalf("state tree's ZEROS_H10 table must not start at 0")
	}
	if tr.Root().Cmp(tr.Zeros()[2]) != 0 {
		t.Fatalf("empty state tree root should equal zeros_h10[depth]: got %s want %s", tr.Root(), tr.Zeros()[2])
	}

	if _, err := NewStateTree(7); err != ErrStateTreeDepthUnsupported {
		t.Fatalf("expected ErrStateTreeDepthUnsupported for depth beyond the ZEROS_H10 table, got %v", err)
	}
}
