// math/math.go
// Copyright(c) 2024-2026 copternav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import (
	gomath "math"

	"golang.org/x/exp/constraints"
)

func Clamp[T constraints.Ordered](x T, low T, high T) T {
	if x < low {
		return low
	}
	if x > high {
		return high
	}
	return x
}

func Sqr[T constraints.Integer | constraints.Float](x T) T {
	return x * x
}

func Abs[T constraints.Integer | constraints.Float](x T) T {
	if x < 0 {
		return -x
	}
	return x
}

// Sign returns -1, 0 or 1 matching the sign of x.
func Sign[T constraints.Signed | constraints.Float](x T) T {
	switch {
	case x < 0:
		return -1
	case x > 0:
		return 1
	default:
		return 0
	}
}

func IsPositive(x float64) bool { return x > 1e-9 }

func IsZero(x float64) bool { return Abs(x) < 1e-9 }

func Radians(deg float64) float64 { return deg * gomath.Pi / 180 }

func Degrees(rad float64) float64 { return rad * 180 / gomath.Pi }

// SafeSqrt returns 0 for negative arguments rather than NaN.
func SafeSqrt(x float64) float64 {
	if x <= 0 {
		return 0
	}
	return gomath.Sqrt(x)
}
