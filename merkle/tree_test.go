package merkle_test

import (
	"testing"

	"github.com/clearsync/sequencer/merkle"
)

func leaf(b byte) [32]byte {
	var l [32]byte
	l[0] = b
	return l
}

func TestBuildEmptyIsSentinel(t *testing.T) {
	tr := merkle.Build(merkle.SHA256Hash, nil)
	if tr.Root() != ([32]byte{}) {
		t.Error("empty tree root should be the all-zero sentinel")
	}
}

func TestBuildSingleLeafIsItsOwnRoot(t *testing.T) {
	l := leaf(1)
	tr := merkle.Build(merkle.SHA256Hash, [][32]byte{l})
	if tr.Root() != l {
		t.Error("single-leaf tree root should equal the leaf itself")
	}
}

func TestProofRoundTripEvenLeaves(t *testing.T) {
	leaves := [][32]byte{leaf(1), leaf(2), leaf(3), leaf(4)}
	tr := merkle.Build(merkle.SHA256Hash, leaves)
	root := tr.Root()
	for i, l := range leaves {
		proof, err := tr.Proof(i)
		if err != nil {
			t.Fatalf("proof(%d): %v", i, err)
		}
		if !merkle.VerifyProof(merkle.SHA256Hash, l, i, proof, root) {
			t.Errorf("proof for leaf %d failed to verify", i)
		}
	}
}

func TestProofRoundTripOddLeavesDuplicatesLast(t *testing.T) {
	leaves := [][32]byte{leaf(1), leaf(2), leaf(3)}
	tr := merkle.Build(merkle.SHA256Hash, leaves)
	root := tr.Root()
	for i, l := range leaves {
		proof, err := tr.Proof(i)
		if err != nil {
			t.Fatalf("proof(%d): %v", i, err)
		}
		if !merkle.VerifyProof(merkle.SHA256Hash, l, i, proof, root) {
			t.Errorf("proof for leaf %d failed to verify in an odd-sized tree", i)
		}
	}
}

func TestVerifyProofRejectsBitFlip(t *testing.T) {
	leaves := [][32]byte{leaf(1), leaf(2), leaf(3), leaf(4)}
	tr := merkle.Build(merkle.SHA256Hash, leaves)
	root := tr.Root()
	proof, err := tr.Proof(0)
	if err != nil {
		t.Fatalf("proof(0): %v", err)
	}
	tampered := leaf(1)
	tampered[1] ^= 0xFF
	if merkle.VerifyProof(merkle.SHA256Hash, tampered, 0, proof, root) {
		t.Error("a tampered leaf should not verify against the original root")
	}
}

func TestProofOutOfRangeFails(t *testing.T) {
	tr := merkle.Build(merkle.SHA256Hash, [][32]byte{leaf(1), leaf(2)})
	if _, err := tr.Proof(5); err == nil {
		t.Error("expected out-of-range proof index to error")
	}
}

func TestSha256AndKeccakDomainsDiffer(t *testing.T) {
	l := leaf(7)
	shaTree := merkle.Build(merkle.SHA256Hash, [][32]byte{l, l})
	keccakTree := merkle.Build(merkle.Keccak256Hash, [][32]byte{l, l})
	if shaTree.Root() == keccakTree.Root() {
		t.Error("SHA-256 and Keccak-256 trees over identical leaves should not collide")
	}
}
