package nullifier_test

import (
	"testing"

	"github.com/clearsync/sequencer/merkle"
	"github.com/clearsync/sequencer/nullifier"
	"github.com/clearsync/sequencer/types"
)

func addr(b byte) types.Address {
	var a types.Address
	a[0] = b
	return a
}

func TestComputeIsDeterministic(t *testing.T) {
	user := addr(1)
	secret := [32]byte{1, 2, 3}
	n1 := nullifier.Compute(user, 0, types.NewAmount(100), 1, secret)
	n2 := nullifier.Compute(user, 0, types.NewAmount(100), 1, secret)
	if n1 != n2 {
		t.Error("identical inputs should produce identical nullifiers")
	}
}

func TestComputeDiffersOnSecret(t *testing.T) {
	user := addr(1)
	n1 := nullifier.Compute(user, 0, types.NewAmount(100), 1, [32]byte{1})
	n2 := nullifier.Compute(user, 0, types.NewAmount(100), 1, [32]byte{2})
	if n1 == n2 {
		t.Error("different secrets should produce different nullifiers, else replay protection is void")
	}
}

func TestComputeDiffersOnAmount(t *testing.T) {
	user := addr(1)
	secret := [32]byte{9}
	n1 := nullifier.Compute(user, 0, types.NewAmount(100), 1, secret)
	n2 := nullifier.Compute(user, 0, types.NewAmount(101), 1, secret)
	if n1 == n2 {
		t.Error("different amounts should produce different nullifiers")
	}
}

func TestInclusionProofVerify(t *testing.T) {
	user := addr(2)
	amount := types.NewAmount(5_000)
	leaf := merkle.WithdrawalLeaf(user, 0, amount, 1)

	other := merkle.WithdrawalLeaf(addr(3), 1, types.NewAmount(1), 1)
	tree := merkle.Build(merkle.Keccak256Hash, [][32]byte{leaf, other})

	proof, err := tree.Proof(0)
	if err != nil {
		t.Fatalf("proof: %v", err)
	}

	ip := &nullifier.InclusionProof{
		Nullifier: nullifier.Compute(user, 0, amount, 1, [32]byte{7}),
		LeafIndex: 0,
		Siblings:  proof,
		Root:      types.Hash(tree.Root()),
	}
	if !ip.Verify(leaf) {
		t.Error("inclusion proof should verify against the tree it was drawn from")
	}
	if ip.Verify(other) {
		t.Error("inclusion proof should not verify against a different leaf")
	}
}
