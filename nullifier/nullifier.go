// Package nullifier computes withdrawal nullifiers and the Merkle inclusion
// proofs that accompany them.
package nullifier

import (
	"encoding/binary"

	"github.com/clearsync/sequencer/merkle"
	"github.com/clearsync/sequencer/types"
)

// Nullifier is a one-way function of a withdrawal plus the user's secret,
// used downstream to prevent the same withdrawal from being replayed.
type Nullifier [32]byte

func (n Nullifier) Hex() string { return types.Hash(n).Hex() }

// Compute derives the nullifier for a withdrawal:
// keccak256(user ‖ asset_id_le ‖ amount_le ‖ chain_id_le ‖ secret_32).
func Compute(user types.Address, asset types.AssetID, amount *types.Amount, chain types.ChainID, secret [32]byte) Nullifier {
	var assetBuf [2]byte
	binary.LittleEndian.PutUint16(assetBuf[:], uint16(asset))

	be := amount.Bytes16()
	var amountBuf [16]byte
	for i := range be {
		amountBuf[i] = be[15-i]
	}

	var chainBuf [8]byte
	binary.LittleEndian.PutUint64(chainBuf[:], uint64(chain))

	digest := merkle.Keccak256Hash(user[:], assetBuf[:], amountBuf[:], chainBuf[:], secret[:])
	return Nullifier(digest)
}

// InclusionProof bundles a nullifier with a Merkle inclusion proof of its
// withdrawal leaf in a block's withdrawals_root.
type InclusionProof struct {
	Nullifier Nullifier
	LeafIndex int
	Siblings  [][32]byte
	Root      types.Hash
}

// Verify reports whether p proves inclusion of leaf at p.LeafIndex under
// p.Root using the Keccak withdrawal-leaf hash domain.
func (p *InclusionProof) Verify(leaf [32]byte) bool {
	return merkle.VerifyProof(merkle.Keccak256Hash, leaf, p.LeafIndex, p.Siblings, [32]byte(p.Root))
}
