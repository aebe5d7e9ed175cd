package fermisurf

import (
	"errors"
	"math"
)

const (
	// EnergyTolerance is the distance under which two energies are the same
	// selection, e.g. a background result matching the displayed energy.
	EnergyTolerance = 1e-6
)

// ErrMsg is returned by programs when an argument to a function is invalid.
var ErrMsg = errors.New("invalid argument")

// Clamp x between a and b, assume a <= b
func Clamp(x, a, b float64) float64 {
	if x < a {
		return a
	}
	if x > b {
		return b
	}
	return x
}

// Sign returns the sign of x
func Sign(x float64) float64 {
	if x < 0 {
		return -1
	}
	if x > 0 {
		return 1
	}
	return 0
}

// EqualFloat64 compares two float64 values for equality within a tolerance.
func EqualFloat64(a, b, tol float64) bool {
	if a == b {
		return true
	}
	return math.Abs(a-b) <= tol
}

// SameEnergy reports whether a and b denote the same energy selection.
func SameEnergy(a, b float64) bool {
	return EqualFloat64(a, b, EnergyTolerance)
}
