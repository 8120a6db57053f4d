package safe

import (
	"math"
	"testing"
)

func TestFinite(t *testing.T) {
	tests := []struct {
		name string
		val  float64
		want bool
	}{
		{"Normal", 12.5, true},
		{"Zero", 0, true},
		{"Negative", -3, true},
		{"NaN", math.NaN(), false},
		{"PosInf", math.Inf(1), false},
		{"NegInf", math.Inf(-1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Finite(tt.val); got != tt.want {
				t.Errorf("Finite(%v) = %v, want %v", tt.val, got, tt.want)
			}
		})
	}
}

func TestPositiveFinite(t *testing.T) {
	if PositiveFinite(0) {
		t.Error("zero is not positive")
	}
	if PositiveFinite(-1) {
		t.Error("negative is not positive")
	}
	if PositiveFinite(math.NaN()) {
		t.Error("NaN is not positive finite")
	}
	if !PositiveFinite(0.01) {
		t.Error("0.01 should be positive finite")
	}
}

func TestProduct(t *testing.T) {
	if p, ok := Product(100, 10); !ok || p != 1000 {
		t.Errorf("Product(100, 10) = %v, %v", p, ok)
	}
	if _, ok := Product(math.MaxFloat64, 2); ok {
		t.Error("overflow to +Inf should not be ok")
	}
	if _, ok := Product(math.NaN(), 1); ok {
		t.Error("NaN product should not be ok")
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(5, 0, 10); got != 5 {
		t.Errorf("got %v", got)
	}
	if got := Clamp(-1, 0, 10); got != 0 {
		t.Errorf("got %v", got)
	}
	if got := Clamp(11, 0, 10); got != 10 {
		t.Errorf("got %v", got)
	}
}
