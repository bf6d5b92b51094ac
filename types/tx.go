package types

import (
	"bytes"
	"encoding/binary"
)

// TxKind identifies the kind of operation a transaction performs.
type TxKind uint8

const (
	TxDeposit TxKind = iota
	TxWithdraw
	TxCreateDeal
	TxAcceptDeal
	TxCancelDeal
)

// kindByte values used in the deterministic signing encoding. Kept
// distinct from TxKind's own iota in case TxKind ever gains values that
// should not be signable (none today, but the split documents intent).
func (k TxKind) kindByte() byte { return byte(k) }

func (k TxKind) String() string {
	switch k {
	case TxDeposit:
		return "deposit"
	case TxWithdraw:
		return "withdraw"
	case TxCreateDeal:
		return "create_deal"
	case TxAcceptDeal:
		return "accept_deal"
	case TxCancelDeal:
		return "cancel_deal"
	default:
		return "unknown"
	}
}

// DepositPayload credits asset into the recipient's balance. Witnessed by
// the watcher from an external chain; carries no destination field because
// Tx.From is itself the depositing user.
type DepositPayload struct {
	Asset  AssetID
	Amount *Amount
	Chain  ChainID
}

// WithdrawPayload debits asset from the sender and bundles the secret used
// to derive the withdrawal nullifier.
type WithdrawPayload struct {
	Asset  AssetID
	Amount *Amount
	Chain  ChainID
	Secret [32]byte
}

// CreateDealPayload posts a maker offer.
type CreateDealPayload struct {
	DealID      uint64
	Visibility  DealVisibility
	Taker       *Address // required iff Visibility == VisibilityDirect
	AssetBase   AssetID
	AssetQuote  AssetID
	AmountBase  *Amount
	PriceQuote  *Amount
	ExpiresAt   *uint64
	ExternalRef string
}

// AcceptDealPayload accepts an existing pending deal.
type AcceptDealPayload struct {
	DealID uint64
}

// CancelDealPayload cancels a pending deal the caller made.
type CancelDealPayload struct {
	DealID uint64
}

// Tx is the atomic unit of work admitted into the sequencer.
// Payload holds exactly one of the *Payload types above, selected by Kind.
type Tx struct {
	ID        uint64
	From      Address
	Nonce     uint64
	Kind      TxKind
	Payload   any
	Signature Signature
}

// SigningBytes returns the deterministic, little-endian binary encoding
// hashed (after EIP-191 prefixing) for signature recovery:
// from ‖ nonce_le ‖ kind_byte ‖ payload_fields.
func (tx *Tx) SigningBytes() []byte {
	var buf bytes.Buffer
	buf.Write(tx.From[:])
	writeUint64LE(&buf, tx.Nonce)
	buf.WriteByte(tx.Kind.kindByte())
	switch p := tx.Payload.(type) {
	case DepositPayload:
		writeUint16LE(&buf, uint16(p.Asset))
		writeAmountLE(&buf, p.Amount)
		writeUint64LE(&buf, uint64(p.Chain))
	case WithdrawPayload:
		writeUint16LE(&buf, uint16(p.Asset))
		writeAmountLE(&buf, p.Amount)
		writeUint64LE(&buf, uint64(p.Chain))
		buf.Write(p.Secret[:])
	case CreateDealPayload:
		writeUint64LE(&buf, p.DealID)
		buf.WriteByte(byte(p.Visibility))
		if p.Taker != nil {
			buf.WriteByte(1)
			buf.Write(p.Taker[:])
		} else {
			buf.WriteByte(0)
		}
		writeUint16LE(&buf, uint16(p.AssetBase))
		writeUint16LE(&buf, uint16(p.AssetQuote))
		writeAmountLE(&buf, p.AmountBase)
		writeAmountLE(&buf, p.PriceQuote)
		if p.ExpiresAt != nil {
			buf.WriteByte(1)
			writeUint64LE(&buf, *p.ExpiresAt)
		} else {
			buf.WriteByte(0)
		}
		buf.WriteString(p.ExternalRef)
	case AcceptDealPayload:
		writeUint64LE(&buf, p.DealID)
	case CancelDealPayload:
		writeUint64LE(&buf, p.DealID)
	}
	return buf.Bytes()
}

func writeUint64LE(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func writeUint16LE(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

// writeAmountLE writes amt as 16 little-endian bytes (128-bit), the reverse
// of Amount.Bytes16()'s big-endian convention.
func writeAmountLE(buf *bytes.Buffer, amt *Amount) {
	if amt == nil {
		amt = ZeroAmount()
	}
	be := amt.Bytes16()
	var le [16]byte
	for i := range be {
		le[i] = be[15-i]
	}
	buf.Write(le[:])
}

// SerializedSize approximates the wire size used for the 10 KiB cap.
// It is the length of SigningBytes (which already includes the fixed
// From/Nonce/Kind overhead) plus the 65-byte signature.
func (tx *Tx) SerializedSize() int {
	return len(tx.SigningBytes()) + SignatureLength
}
