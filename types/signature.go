package types

import (
	"encoding/hex"
	"fmt"
)

// SignatureLength is the size in bytes of a recoverable ECDSA signature:
// r (32) || s (32) || v (1), v already normalized to {0,1}.
const SignatureLength = 65

// Signature is a 65-byte recoverable secp256k1 ECDSA signature.
type Signature [SignatureLength]byte

// IsEmpty reports whether sig is the zero value, which is how unsigned
// deposit transactions arrive.
func (s Signature) IsEmpty() bool { return s == Signature{} }

// Hex returns the lowercase hex encoding of the signature.
func (s Signature) Hex() string { return hex.EncodeToString(s[:]) }

// R returns the signature's r component.
func (s Signature) R() []byte { return s[0:32] }

// S returns the signature's s component.
func (s Signature) S() []byte { return s[32:64] }

// V returns the recovery id, already normalized to {0,1}.
func (s Signature) V() byte { return s[64] }

// MarshalJSON encodes s as a lowercase hex string.
func (s Signature) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.Hex() + `"`), nil
}

// UnmarshalJSON decodes a hex string into s.
func (s *Signature) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("signature: invalid JSON string %s", data)
	}
	b, err := hex.DecodeString(string(data[1 : len(data)-1]))
	if err != nil {
		return fmt.Errorf("signature: %w", err)
	}
	if len(b) != SignatureLength {
		return fmt.Errorf("signature: expected %d bytes, got %d", SignatureLength, len(b))
	}
	copy(s[:], b)
	return nil
}
