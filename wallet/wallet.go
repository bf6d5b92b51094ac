// Package wallet holds a key pair and builds signed transactions, for
// tests and CLI use. Signing is secp256k1-with-recovery over the
// sequencer's own Tx/payload shapes.
package wallet

import (
	"github.com/clearsync/sequencer/crypto"
	"github.com/clearsync/sequencer/types"
)

// Wallet holds a key pair and provides transaction-building helpers.
type Wallet struct {
	priv crypto.PrivateKey
	pub  crypto.PublicKey
}

// New creates a Wallet from an existing private key.
func New(priv crypto.PrivateKey) *Wallet {
	return &Wallet{priv: priv, pub: priv.Public()}
}

// Generate creates a Wallet with a freshly generated key pair.
func Generate() (*Wallet, error) {
	priv, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	return New(priv), nil
}

// PrivKey returns the raw private key (handle with care).
func (w *Wallet) PrivKey() crypto.PrivateKey { return w.priv }

// Address returns the wallet's 20-byte address, used as a Tx's "from"
// field.
func (w *Wallet) Address() types.Address { return w.pub.Address() }

// NewTx builds and signs a transaction of kind with the given nonce and
// payload.
func (w *Wallet) NewTx(id uint64, kind types.TxKind, nonce uint64, payload any) (*types.Tx, error) {
	tx := &types.Tx{
		ID:     id,
		From:   w.Address(),
		Nonce:  nonce,
		Kind:   kind,
		Payload: payload,
	}
	digest := crypto.EIP191Hash(tx.SigningBytes())
	sig, err := crypto.Sign(w.priv, digest)
	if err != nil {
		return nil, err
	}
	tx.Signature = sig
	return tx, nil
}

// Deposit builds an unsigned deposit transaction: deposits are witnessed
// by the watcher, not signed by the depositing user, so this skips
// NewTx's signing step entirely.
func (w *Wallet) Deposit(id uint64, nonce uint64, asset types.AssetID, amount *types.Amount, chain types.ChainID) *types.Tx {
	return &types.Tx{
		ID:    id,
		From:  w.Address(),
		Nonce: nonce,
		Kind:  types.TxDeposit,
		Payload: types.DepositPayload{
			Asset:  asset,
			Amount: amount,
			Chain:  chain,
		},
	}
}

// Withdraw builds a signed withdraw transaction.
func (w *Wallet) Withdraw(id uint64, nonce uint64, asset types.AssetID, amount *types.Amount, chain types.ChainID, secret [32]byte) (*types.Tx, error) {
	return w.NewTx(id, types.TxWithdraw, nonce, types.WithdrawPayload{
		Asset:  asset,
		Amount: amount,
		Chain:  chain,
		Secret: secret,
	})
}

// CreateDeal builds a signed deal-creation transaction.
func (w *Wallet) CreateDeal(id uint64, nonce uint64, payload types.CreateDealPayload) (*types.Tx, error) {
	return w.NewTx(id, types.TxCreateDeal, nonce, payload)
}

// AcceptDeal builds a signed deal-acceptance transaction.
func (w *Wallet) AcceptDeal(id uint64, nonce uint64, dealID uint64) (*types.Tx, error) {
	return w.NewTx(id, types.TxAcceptDeal, nonce, types.AcceptDealPayload{DealID: dealID})
}

// CancelDeal builds a signed deal-cancellation transaction.
func (w *Wallet) CancelDeal(id uint64, nonce uint64, dealID uint64) (*types.Tx, error) {
	return w.NewTx(id, types.TxCancelDeal, nonce, types.CancelDealPayload{DealID: dealID})
}
