package merkle

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"

	"github.com/clearsync/sequencer/types"
	gocrypto "github.com/clearsync/sequencer/crypto"
)

// SHA256Hash is the HashFunc used for state commitments.
func SHA256Hash(data ...[]byte) [32]byte {
	h := sha256.New()
	for _, d := range data {
		h.Write(d)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Keccak256Hash is the HashFunc used for withdrawal commitments.
func Keccak256Hash(data ...[]byte) [32]byte {
	return gocrypto.Keccak256(data...)
}

// domain-separation tags for state leaves, so an Account and a Deal never
// hash to the same leaf even if their canonical byte encodings happened to
// collide incidentally.
const (
	domainAccount byte = 0x01
	domainDeal    byte = 0x02
)

// WithdrawalLeaf encodes keccak256(user ‖ asset_id_le ‖ amount_le ‖
// chain_id_le), the leaf format for the withdrawals tree.
func WithdrawalLeaf(user types.Address, asset types.AssetID, amount *types.Amount, chain types.ChainID) [32]byte {
	var buf bytes.Buffer
	buf.Write(user[:])
	var assetLE [2]byte
	binary.LittleEndian.PutUint16(assetLE[:], uint16(asset))
	buf.Write(assetLE[:])
	buf.Write(amountLE16(amount))
	var chainLE [8]byte
	binary.LittleEndian.PutUint64(chainLE[:], uint64(chain))
	buf.Write(chainLE[:])
	return Keccak256Hash(buf.Bytes())
}

// AccountLeaf encodes a domain-separated, canonical state leaf for acc.
// Balances are encoded in ascending asset-id order so the leaf is
// deterministic regardless of map iteration order.
func AccountLeaf(acc *types.Account) [32]byte {
	var buf bytes.Buffer
	buf.WriteByte(domainAccount)
	writeUint64(&buf, acc.ID)
	buf.Write(acc.Owner[:])
	for _, assetID := range acc.SortedAssetIDs() {
		var assetBE [2]byte
		binary.BigEndian.PutUint16(assetBE[:], uint16(assetID))
		buf.Write(assetBE[:])
		buf.Write(acc.Balances[assetID].Bytes16())
	}
	writeUint64(&buf, acc.Nonce)
	writeUint64(&buf, acc.CreatedAt)
	return SHA256Hash(buf.Bytes())
}

// DealLeaf encodes a domain-separated, canonical state leaf for d.
func DealLeaf(d *types.Deal) [32]byte {
	var buf bytes.Buffer
	buf.WriteByte(domainDeal)
	writeUint64(&buf, d.ID)
	buf.Write(d.Maker[:])
	if d.Taker != nil {
		buf.WriteByte(1)
		buf.Write(d.Taker[:])
	} else {
		buf.WriteByte(0)
	}
	buf.WriteByte(byte(d.Visibility))
	var assetsBE [4]byte
	binary.BigEndian.PutUint16(assetsBE[0:2], uint16(d.AssetBase))
	binary.BigEndian.PutUint16(assetsBE[2:4], uint16(d.AssetQuote))
	buf.Write(assetsBE[:])
	buf.Write(d.AmountBase.Bytes16())
	buf.Write(d.PriceQuote.Bytes16())
	buf.WriteByte(byte(d.Status))
	writeUint64(&buf, d.CreatedAt)
	if d.ExpiresAt != nil {
		buf.WriteByte(1)
		writeUint64(&buf, *d.ExpiresAt)
	} else {
		buf.WriteByte(0)
	}
	buf.WriteString(d.ExternalRef)
	return SHA256Hash(buf.Bytes())
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

// amountLE16 returns amt's 128-bit little-endian encoding.
func amountLE16(amt *types.Amount) []byte {
	if amt == nil {
		amt = types.ZeroAmount()
	}
	be := amt.Bytes16()
	le := make([]byte, 16)
	for i := range be {
		le[i] = be[15-i]
	}
	return le
}
