package crypto_test

import (
	"testing"

	"github.com/clearsync/sequencer/crypto"
)

func TestSignThenRecoverAddressRoundTrip(t *testing.T) {
	priv, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate key pair: %v", err)
	}
	addr := priv.Public().Address()

	digest := crypto.EIP191Hash([]byte("hello sequencer"))
	sig, err := crypto.Sign(priv, digest)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	recovered, err := crypto.RecoverAddress(digest, sig)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if recovered != addr {
		t.Errorf("recovered address %s != signer address %s", recovered.Hex(), addr.Hex())
	}
}

func TestRecoverAddressRejectsEmptySignature(t *testing.T) {
	digest := crypto.EIP191Hash([]byte("x"))
	if _, err := crypto.RecoverAddress(digest, [65]byte{}); err == nil {
		t.Error("expected an empty signature to be rejected")
	}
}

func TestRecoverAddressFailsOnTamperedDigest(t *testing.T) {
	priv, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate key pair: %v", err)
	}
	addr := priv.Public().Address()
	digest := crypto.EIP191Hash([]byte("original"))
	sig, err := crypto.Sign(priv, digest)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	tamperedDigest := crypto.EIP191Hash([]byte("tampered"))
	recovered, err := crypto.RecoverAddress(tamperedDigest, sig)
	if err == nil && recovered == addr {
		t.Error("a signature over a different digest should not recover to the same address")
	}
}

func TestPrivKeyFromHexRoundTrip(t *testing.T) {
	priv, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate key pair: %v", err)
	}
	decoded, err := crypto.PrivKeyFromHex(priv.Hex())
	if err != nil {
		t.Fatalf("from hex: %v", err)
	}
	if decoded.Public().Address() != priv.Public().Address() {
		t.Error("round-tripping through hex should preserve the key")
	}
}

func TestPrivKeyFromBytesRoundTrip(t *testing.T) {
	priv, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate key pair: %v", err)
	}
	decoded, err := crypto.PrivKeyFromBytes(priv.Bytes())
	if err != nil {
		t.Fatalf("from bytes: %v", err)
	}
	if decoded.Public().Address() != priv.Public().Address() {
		t.Error("round-tripping through raw bytes should preserve the key")
	}
}

func TestEIP191HashIsDeterministic(t *testing.T) {
	a := crypto.EIP191Hash([]byte("same"))
	b := crypto.EIP191Hash([]byte("same"))
	if a != b {
		t.Error("hashing identical input twice should produce identical digests")
	}
}
