package safe

import (
	"math"
)

// Finite reports whether f is a usable number (not NaN, not ±Inf).
func Finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// PositiveFinite reports whether f is finite and strictly positive.
// Prices and quantities entering the core must pass this check.
func PositiveFinite(f float64) bool {
	return Finite(f) && f > 0
}

// NonNegativeFinite reports whether f is finite and >= 0.
func NonNegativeFinite(f float64) bool {
	return Finite(f) && f >= 0
}

// Product returns a*b and whether the result is finite and positive.
// Used for order cost checks where an adversarial qty*price could overflow
// to +Inf.
func Product(a, b float64) (float64, bool) {
	p := a * b
	return p, PositiveFinite(p)
}

// Clamp bounds f to [lo, hi].
func Clamp(f, lo, hi float64) float64 {
	if f < lo {
		return lo
	}
	if f > hi {
		return hi
	}
	return f
}
