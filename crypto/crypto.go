// Package crypto provides the secp256k1/Keccak-256/EIP-191 signing stack
// used throughout the sequencer: transaction signing and recovery,
// withdrawal nullifiers, and block proposer-style hashing wherever
// Keccak-256 is called for specifically (SHA-256 uses stdlib directly
// in merkle/ and proof/stark, which never touch user-facing signatures).
//
// Recoverable ECDSA is the requirement here; plain ed25519 signing
// cannot provide a public-key recovery path.
package crypto

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"

	gethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/clearsync/sequencer/types"
)

// PrivateKey wraps a secp256k1 private key.
type PrivateKey struct{ key *ecdsa.PrivateKey }

// PublicKey wraps a secp256k1 public key.
type PublicKey struct{ key *ecdsa.PublicKey }

// GenerateKeyPair creates a new secp256k1 key pair.
func GenerateKeyPair() (PrivateKey, error) {
	key, err := gethcrypto.GenerateKey()
	if err != nil {
		return PrivateKey{}, err
	}
	return PrivateKey{key: key}, nil
}

// Public derives the public key from priv.
func (priv PrivateKey) Public() PublicKey {
	return PublicKey{key: &priv.key.PublicKey}
}

// Hex returns the hex-encoded private key scalar.
func (priv PrivateKey) Hex() string {
	return hex.EncodeToString(gethcrypto.FromECDSA(priv.key))
}

// Bytes returns the raw 32-byte private key scalar, for encrypted
// keystore persistence (see wallet.SaveKey/LoadKey).
func (priv PrivateKey) Bytes() []byte {
	return gethcrypto.FromECDSA(priv.key)
}

// PrivKeyFromHex decodes a hex-encoded secp256k1 private key.
func PrivKeyFromHex(s string) (PrivateKey, error) {
	key, err := gethcrypto.HexToECDSA(s)
	if err != nil {
		return PrivateKey{}, fmt.Errorf("invalid privkey hex: %w", err)
	}
	return PrivateKey{key: key}, nil
}

// PrivKeyFromBytes decodes a raw 32-byte secp256k1 private key scalar.
func PrivKeyFromBytes(b []byte) (PrivateKey, error) {
	key, err := gethcrypto.ToECDSA(b)
	if err != nil {
		return PrivateKey{}, fmt.Errorf("invalid privkey bytes: %w", err)
	}
	return PrivateKey{key: key}, nil
}

// Address derives the 20-byte address from the public key: the low 20
// bytes of Keccak256(uncompressed_pubkey[1:]).
func (pub PublicKey) Address() types.Address {
	uncompressed := gethcrypto.FromECDSAPub(pub.key)
	h := gethcrypto.Keccak256(uncompressed[1:])
	return types.AddressFromBytes(h)
}

// Keccak256 hashes data and returns the raw 32-byte digest.
func Keccak256(data ...[]byte) [32]byte {
	var out [32]byte
	copy(out[:], gethcrypto.Keccak256(data...))
	return out
}

// EIP191Hash applies the EIP-191 personal-message prefix
// ("\x19Ethereum Signed Message:\n" + len(msg)) to msg and returns the
// Keccak-256 digest.
func EIP191Hash(msg []byte) [32]byte {
	prefix := fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(msg))
	return Keccak256([]byte(prefix), msg)
}

// Sign signs digest (already EIP-191 prefixed and hashed) with priv and
// returns a 65-byte [R(32) || S(32) || V(1)] signature with V in {0,1}.
func Sign(priv PrivateKey, digest [32]byte) (types.Signature, error) {
	sig, err := gethcrypto.Sign(digest[:], priv.key)
	if err != nil {
		return types.Signature{}, err
	}
	var out types.Signature
	copy(out[:], sig[:types.SignatureLength])
	// go-ethereum's Sign already returns v in {0,1}; normalize defensively
	// per Open Question 5 (v mod 27) in case of a foreign-origin signature.
	out[64] = normalizeV(out[64])
	return out, nil
}

// normalizeV implements Open Question 5's policy: accept both legacy
// (27/28) and already-normalized (0/1) recovery ids by reducing mod 27.
func normalizeV(v byte) byte {
	return v % 27
}

// RecoverAddress recovers the signer's address from digest and sig,
// without needing the claimed address up front.
func RecoverAddress(digest [32]byte, sig types.Signature) (types.Address, error) {
	if sig.IsEmpty() {
		return types.Address{}, errors.New("crypto: empty signature")
	}
	raw := make([]byte, types.SignatureLength)
	copy(raw, sig[:])
	raw[64] = normalizeV(raw[64])
	pub, err := gethcrypto.SigToPub(digest[:], raw)
	if err != nil {
		return types.Address{}, fmt.Errorf("crypto: recover: %w", err)
	}
	return PublicKey{key: pub}.Address(), nil
}
