package validation_test

import (
	"strings"
	"testing"

	"github.com/clearsync/sequencer/types"
	"github.com/clearsync/sequencer/validation"
	"github.com/clearsync/sequencer/wallet"
)

type fixedNonce struct{ n uint64 }

func (f fixedNonce) NonceOf(types.Address) uint64 { return f.n }

func mustWallet(t *testing.T) *wallet.Wallet {
	t.Helper()
	w, err := wallet.Generate()
	if err != nil {
		t.Fatalf("generate wallet: %v", err)
	}
	return w
}

func TestValidateAcceptsWellFormedSignedTx(t *testing.T) {
	w := mustWallet(t)
	tx, err := w.CreateDeal(1, 0, types.CreateDealPayload{
		DealID: 1, Visibility: types.VisibilityPublic,
		AssetBase: 0, AssetQuote: 1,
		AmountBase: types.NewAmount(1), PriceQuote: types.NewAmount(1),
	})
	if err != nil {
		t.Fatalf("build tx: %v", err)
	}
	if err := validation.Validate(tx, fixedNonce{0}); err != nil {
		t.Fatalf("expected valid tx to pass, got %v", err)
	}
}

func TestValidateRejectsTamperedSignature(t *testing.T) {
	w := mustWallet(t)
	tx, err := w.CancelDeal(1, 0, 1)
	if err != nil {
		t.Fatalf("build tx: %v", err)
	}
	tx.Signature[0] ^= 0xFF
	err = validation.Validate(tx, fixedNonce{0})
	if err == nil {
		t.Fatal("expected tampered signature to fail validation")
	}
	if !strings.Contains(err.Error(), "invalid_signature") {
		t.Errorf("expected invalid_signature kind, got %v", err)
	}
}

func TestValidateRejectsWrongNonce(t *testing.T) {
	w := mustWallet(t)
	tx, err := w.CancelDeal(1, 5, 1)
	if err != nil {
		t.Fatalf("build tx: %v", err)
	}
	err = validation.Validate(tx, fixedNonce{0})
	if err == nil {
		t.Fatal("expected mismatched nonce to fail validation")
	}
	if !strings.Contains(err.Error(), "invalid_nonce") {
		t.Errorf("expected invalid_nonce kind, got %v", err)
	}
}

func TestValidateRejectsSentinelAddress(t *testing.T) {
	tx := &types.Tx{From: types.ZeroAddress, Nonce: 0, Kind: types.TxDeposit,
		Payload: types.DepositPayload{Asset: 0, Amount: types.NewAmount(1), Chain: 1}}
	err := validation.Validate(tx, fixedNonce{0})
	if err == nil || !strings.Contains(err.Error(), "invalid_address") {
		t.Fatalf("expected invalid_address, got %v", err)
	}
}

func TestValidateSkipsSignatureForDeposit(t *testing.T) {
	w := mustWallet(t)
	tx := w.Deposit(1, 0, 0, types.NewAmount(100), 1)
	// Deposit is intentionally unsigned; Validate must not attempt recovery.
	if err := validation.Validate(tx, fixedNonce{0}); err != nil {
		t.Fatalf("expected unsigned deposit to pass, got %v", err)
	}
}

func TestValidateRejectsStaleNonceBehindCurrent(t *testing.T) {
	w := mustWallet(t)
	tx, err := w.CancelDeal(1, 3, 1)
	if err != nil {
		t.Fatalf("build tx: %v", err)
	}
	err = validation.Validate(tx, fixedNonce{7})
	if err == nil || !strings.Contains(err.Error(), "invalid_nonce") {
		t.Fatalf("expected invalid_nonce for a stale nonce behind current, got %v", err)
	}
}
