package types

import "testing"

func TestSaturatingAdd(t *testing.T) {
	sum := SaturatingAdd(MaxAmount, NewAmount(1))
	if sum.Cmp(MaxAmount) != 0 {
		t.Errorf("expected saturation at MaxAmount, got %s", sum.String())
	}
}

func TestSaturatingAddNoOverflow(t *testing.T) {
	sum := SaturatingAdd(NewAmount(10), NewAmount(5))
	if sum.Cmp(NewAmount(15)) != 0 {
		t.Errorf("got %s, want 15", sum.String())
	}
}

func TestCheckedSub(t *testing.T) {
	diff, ok := CheckedSub(NewAmount(10), NewAmount(4))
	if !ok || diff.Cmp(NewAmount(6)) != 0 {
		t.Fatalf("got (%v, %v), want (6, true)", diff, ok)
	}
	if _, ok := CheckedSub(NewAmount(4), NewAmount(10)); ok {
		t.Error("expected underflow to fail")
	}
}

func TestCheckedMul(t *testing.T) {
	prod, ok := CheckedMul(NewAmount(1_000), NewAmount(100))
	if !ok || prod.Cmp(NewAmount(100_000)) != 0 {
		t.Fatalf("got (%v, %v), want (100000, true)", prod, ok)
	}
	if _, ok := CheckedMul(MaxAmount, NewAmount(2)); ok {
		t.Error("expected multiplication beyond the 128-bit ceiling to fail")
	}
}

func TestAddressSentinels(t *testing.T) {
	if !ZeroAddress.IsZero() {
		t.Error("ZeroAddress.IsZero() should be true")
	}
	if !BurnAddress.IsBurn() {
		t.Error("BurnAddress.IsBurn() should be true")
	}
	var a Address
	a[0] = 1
	if a.IsZero() || a.IsBurn() {
		t.Error("non-sentinel address misclassified")
	}
}
