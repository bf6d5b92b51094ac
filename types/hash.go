package types

import (
	"encoding/hex"
	"fmt"
)

// Hash is a generic 32-byte digest (a state root, withdrawals root, or tx
// hash), hex-encoded on the wire for readability.
type Hash [32]byte

// Hex returns the 0x-prefixed lowercase hex encoding.
func (h Hash) Hex() string { return "0x" + hex.EncodeToString(h[:]) }

func (h Hash) String() string { return h.Hex() }

// IsZero reports whether h is the all-zero sentinel.
func (h Hash) IsZero() bool { return h == Hash{} }

// MarshalJSON encodes h as a hex string.
func (h Hash) MarshalJSON() ([]byte, error) {
	return []byte(`"` + h.Hex() + `"`), nil
}

// UnmarshalJSON decodes a hex string into h.
func (h *Hash) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("hash: invalid JSON string %s", data)
	}
	s := string(data[1 : len(data)-1])
	if len(s) >= 2 && s[0:2] == "0x" {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("hash: %w", err)
	}
	if len(b) != 32 {
		return fmt.Errorf("hash: expected 32 bytes, got %d", len(b))
	}
	copy(h[:], b)
	return nil
}
