package wallet_test

import (
	"path/filepath"
	"testing"

	"github.com/clearsync/sequencer/wallet"
)

func TestSaveLoadKeyRoundTrip(t *testing.T) {
	w, err := wallet.Generate()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	path := filepath.Join(t.TempDir(), "operator.key")
	if err := wallet.SaveKey(path, "correct horse battery staple", w.PrivKey()); err != nil {
		t.Fatalf("save key: %v", err)
	}

	loaded, err := wallet.LoadKey(path, "correct horse battery staple")
	if err != nil {
		t.Fatalf("load key: %v", err)
	}
	if loaded.Address() != w.Address() {
		t.Errorf("loaded address %s != original %s", loaded.Address().Hex(), w.Address().Hex())
	}
}

func TestLoadKeyRejectsWrongPassword(t *testing.T) {
	w, err := wallet.Generate()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	path := filepath.Join(t.TempDir(), "operator.key")
	if err := wallet.SaveKey(path, "correct-password", w.PrivKey()); err != nil {
		t.Fatalf("save key: %v", err)
	}

	if _, err := wallet.LoadKey(path, "wrong-password"); err == nil {
		t.Error("expected the wrong password to fail decryption")
	}
}
