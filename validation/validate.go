// Package validation implements the admission-time checks: signature
// recovery and nonce checking, plus the size/address sanity checks. It
// never runs inside the STF — admission is the only gate.
package validation

import (
	"fmt"

	"github.com/clearsync/sequencer/crypto"
	"github.com/clearsync/sequencer/types"
)

// MaxTxSize is the serialized-length cap on an admitted transaction.
const MaxTxSize = 10 * 1024

// MaxNonceGap bounds how far tx.Nonce may exceed the account's current
// nonce, a defence-in-depth check against pathological inputs. In
// practice the strict-equality check below already rejects any gap other
// than zero; this guards the error path itself against overflow/garbage
// nonces before the diff is computed.
const MaxNonceGap = 1_000_000

// ErrKind enumerates the closed set of validation failure kinds.
type ErrKind string

const (
	ErrInvalidSignature ErrKind = "invalid_signature"
	ErrInvalidNonce     ErrKind = "invalid_nonce"
	ErrInvalidAddress   ErrKind = "invalid_address"
	ErrTxTooLarge       ErrKind = "tx_too_large"
)

// Error is validation's single error type.
type Error struct {
	Kind ErrKind
	msg  string
}

func (e *Error) Error() string { return fmt.Sprintf("validation: %s: %s", e.Kind, e.msg) }

func newErr(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, msg: fmt.Sprintf(format, args...)}
}

// NonceSource supplies the current on-chain nonce for an address. Accounts
// that don't exist yet have nonce 0.
type NonceSource interface {
	NonceOf(addr types.Address) uint64
}

// Validate runs every admission-time check for tx:
//  1. address sanity (not all-zero, not all-0xFF)
//  2. size cap (10 KiB serialized)
//  3. signature recovery (skipped for Deposit — watcher-witnessed, unsigned)
//  4. nonce equality against the current account state
func Validate(tx *types.Tx, nonces NonceSource) error {
	if tx.From.IsZero() || tx.From.IsBurn() {
		return newErr(ErrInvalidAddress, "from address %s is a sentinel value", tx.From)
	}
	if size := tx.SerializedSize(); size > MaxTxSize {
		return newErr(ErrTxTooLarge, "serialized size %d exceeds %d byte cap", size, MaxTxSize)
	}
	if tx.Kind != types.TxDeposit {
		if err := verifySignature(tx); err != nil {
			return err
		}
	}
	return verifyNonce(tx, nonces)
}

func verifySignature(tx *types.Tx) error {
	digest := crypto.EIP191Hash(tx.SigningBytes())
	recovered, err := crypto.RecoverAddress(digest, tx.Signature)
	if err != nil {
		return newErr(ErrInvalidSignature, "recover: %v", err)
	}
	if recovered != tx.From {
		return newErr(ErrInvalidSignature, "recovered address %s does not match from %s", recovered, tx.From)
	}
	return nil
}

func verifyNonce(tx *types.Tx, nonces NonceSource) error {
	current := nonces.NonceOf(tx.From)
	var gap uint64
	if tx.Nonce >= current {
		gap = tx.Nonce - current
	} else {
		gap = current - tx.Nonce
	}
	if gap > MaxNonceGap {
		return newErr(ErrInvalidNonce, "nonce %d is implausibly far from current %d", tx.Nonce, current)
	}
	if tx.Nonce != current {
		return newErr(ErrInvalidNonce, "expected nonce %d, got %d", current, tx.Nonce)
	}
	return nil
}
