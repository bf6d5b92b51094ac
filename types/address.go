// Package types defines the flat data shapes shared across the sequencer:
// addresses, asset and chain identifiers, amounts, and signatures. Nothing
// in this package performs I/O or holds business logic.
package types

import (
	"encoding/hex"
	"fmt"
)

// AddressLength is the size in bytes of an Address.
const AddressLength = 20

// Address is a 20-byte account identifier derived from a recovered
// secp256k1 public key (see crypto.RecoverAddress).
type Address [AddressLength]byte

// ZeroAddress is the all-zero sentinel address. It is never a valid sender.
var ZeroAddress Address

// BurnAddress is the all-0xFF sentinel address. It is also never a valid
// sender.
var BurnAddress = func() Address {
	var a Address
	for i := range a {
		a[i] = 0xFF
	}
	return a
}()

// IsZero reports whether a is the all-zero sentinel.
func (a Address) IsZero() bool { return a == ZeroAddress }

// IsBurn reports whether a is the all-0xFF sentinel.
func (a Address) IsBurn() bool { return a == BurnAddress }

// Hex returns the 40-char lowercase hex encoding of a, prefixed with 0x.
func (a Address) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

// String implements fmt.Stringer.
func (a Address) String() string { return a.Hex() }

// AddressFromHex decodes a 0x-prefixed or bare hex string into an Address.
func AddressFromHex(s string) (Address, error) {
	var a Address
	if len(s) >= 2 && s[0:2] == "0x" {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return a, fmt.Errorf("invalid address hex %q: %w", s, err)
	}
	if len(b) != AddressLength {
		return a, fmt.Errorf("address must be %d bytes, got %d", AddressLength, len(b))
	}
	copy(a[:], b)
	return a, nil
}

// MarshalJSON encodes a as a 0x-prefixed hex string.
func (a Address) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.Hex() + `"`), nil
}

// UnmarshalJSON decodes a 0x-prefixed hex string into a.
func (a *Address) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("address: invalid JSON string %s", data)
	}
	decoded, err := AddressFromHex(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*a = decoded
	return nil
}

// AddressFromBytes copies the last AddressLength bytes of b into an Address.
// It is used to derive an address from a recovered public key hash.
func AddressFromBytes(b []byte) Address {
	var a Address
	if len(b) >= AddressLength {
		copy(a[:], b[len(b)-AddressLength:])
	} else {
		copy(a[AddressLength-len(b):], b)
	}
	return a
}
