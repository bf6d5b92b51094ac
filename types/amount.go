package types

import (
	"math/big"

	"github.com/holiman/uint256"
)

// Amount is a 128-bit unsigned quantity. holiman/uint256.Int (256-bit)
// gives us overflow-checked Add/Mul for free, so Amount is a uint256.Int
// constrained to a 128-bit ceiling by MaxAmount.
type Amount = uint256.Int

// maxAmountBig is 2^128 - 1.
var maxAmountBig = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// MaxAmount is the saturation ceiling for every balance in the system:
// u128::MAX.
var MaxAmount = uint256.MustFromBig(maxAmountBig)

// ZeroAmount returns a fresh zero-valued Amount.
func ZeroAmount() *Amount { return new(uint256.Int) }

// NewAmount builds an Amount from a uint64.
func NewAmount(v uint64) *Amount { return uint256.NewInt(v) }

// SaturatingAdd returns a+b, clamped to MaxAmount on overflow.
func SaturatingAdd(a, b *Amount) *Amount {
	sum := new(uint256.Int)
	overflow := sum.AddOverflow(a, b)
	if overflow || sum.Gt(MaxAmount) {
		return new(uint256.Int).Set(MaxAmount)
	}
	return sum
}

// CheckedSub returns a-b and true if a >= b, else (nil, false).
func CheckedSub(a, b *Amount) (*Amount, bool) {
	if a.Lt(b) {
		return nil, false
	}
	diff := new(uint256.Int)
	diff.Sub(a, b)
	return diff, true
}

// CheckedMul returns a*b and false if the true mathematical product exceeds
// the 128-bit ceiling. This is a hard error path used for amount_base × price computation.
func CheckedMul(a, b *Amount) (*Amount, bool) {
	prod := new(uint256.Int)
	overflow := prod.MulOverflow(a, b)
	if overflow || prod.Gt(MaxAmount) {
		return nil, false
	}
	return prod, true
}

// IsZero reports whether amt is exactly zero (nil is treated as zero).
func IsZero(amt *Amount) bool {
	return amt == nil || amt.IsZero()
}
